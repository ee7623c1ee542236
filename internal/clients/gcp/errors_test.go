package gcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
)

func TestProviderErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "backend down"), true},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "slow down"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "late"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad uri"), false},
		{"grpc permission", status.Error(codes.PermissionDenied, "quota project missing"), false},
		{"wrapped grpc", fmt.Errorf("annotate: %w", status.Error(codes.Unavailable, "x")), true},
		{"googleapi 429", &googleapi.Error{Code: 429}, true},
		{"googleapi 503", &googleapi.Error{Code: 503}, true},
		{"googleapi 404", &googleapi.Error{Code: 404}, false},
		{"quota message", errors.New("Error 429: Quota exceeded for model"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("malformed response"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProviderError(moderation.DetectorObjectTracker, tc.err)
			if moderation.IsTransient(got) != tc.transient {
				t.Fatalf("transient=%v, want %v (%v)", moderation.IsTransient(got), tc.transient, got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("wrapped error lost: %v", got)
			}
		})
	}
}

func TestProviderErrorKeepsExistingTaxonomy(t *testing.T) {
	in := &moderation.ClientInputError{Msg: "empty uri"}
	if got := ProviderError(moderation.DetectorNarrative, in); got != error(in) {
		t.Fatalf("expected passthrough, got %v", got)
	}
	if ProviderError(moderation.DetectorNarrative, nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 4, func(ctx context.Context) (int, error) {
		calls++
		return 0, status.Error(codes.InvalidArgument, "no")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one call and an error, got calls=%d err=%v", calls, err)
	}
}

func TestWithRetryRetriesTransient(t *testing.T) {
	calls := 0
	got, err := withRetry(context.Background(), 2, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", status.Error(codes.Unavailable, "again")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" || calls != 2 {
		t.Fatalf("got=%q err=%v calls=%d", got, err, calls)
	}
}

func TestParseGCSURI(t *testing.T) {
	b, o, err := ParseGCSURI("gs://videos/uploads/a.mp4")
	if err != nil || b != "videos" || o != "uploads/a.mp4" {
		t.Fatalf("got %q %q %v", b, o, err)
	}
	for _, bad := range []string{"", "https://x/y", "gs://bucket", "gs:///obj"} {
		if _, _, err := ParseGCSURI(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
