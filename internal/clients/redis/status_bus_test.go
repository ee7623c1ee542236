package redis

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

func TestDecodeStatusEvent(t *testing.T) {
	id := uuid.New()
	ev, err := decodeStatusEvent(`{"video_id":"` + id.String() + `","state":"completed","verdict":"Safe","safety_score":91}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.VideoID != id || ev.State != "completed" || ev.Verdict != "Safe" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.SafetyScore == nil || *ev.SafetyScore != 91 {
		t.Fatalf("unexpected safety score: %v", ev.SafetyScore)
	}

	if _, err := decodeStatusEvent(`{"video_id":"` + id.String() + `"}`); err == nil {
		t.Fatalf("expected error for missing state")
	}
	if _, err := decodeStatusEvent(`not json`); err == nil {
		t.Fatalf("expected error for bad json")
	}
}

func TestNilBusRejectsPublish(t *testing.T) {
	var b *statusBus
	if err := b.PublishStatus(context.Background(), videos.StatusEvent{State: "pending"}); err == nil {
		t.Fatalf("expected error from nil bus")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close on nil bus: %v", err)
	}
}

func TestNewStatusBusRequiresAddr(t *testing.T) {
	if _, err := NewStatusBus(logger.Nop(), " ", ""); err == nil {
		t.Fatalf("expected missing addr error")
	}
	if _, err := NewStatusBus(nil, "localhost:6379", ""); err == nil {
		t.Fatalf("expected missing logger error")
	}
}
