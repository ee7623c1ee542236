package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
)

func SeedVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, state moderation.JobState) *videos.Video {
	tb.Helper()
	v := &videos.Video{
		ID:    uuid.New(),
		Title: "clip",
		URI:   "gs://videoguard-test/" + uuid.NewString() + ".mp4",
		State: string(state),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return v
}

// SeedProcessingVideo seeds a video that was claimed at claimedAt.
func SeedProcessingVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, claimedAt time.Time) *videos.Video {
	tb.Helper()
	v := SeedVideo(tb, ctx, tx, moderation.JobProcessing)
	if err := tx.WithContext(ctx).Model(&videos.Video{}).
		Where("id = ?", v.ID).
		Updates(map[string]interface{}{"claimed_at": claimedAt, "attempts": 1}).Error; err != nil {
		tb.Fatalf("seed processing video: %v", err)
	}
	v.ClaimedAt = PtrTime(claimedAt)
	v.Attempts = 1
	return v
}

func PtrTime(v time.Time) *time.Time { return &v }
