package videomod

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/videoguard-backend/internal/jobs"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type VideoProcessor interface {
	Process(ctx context.Context, videoID uuid.UUID) (jobs.Result, error)
}

type Activities struct {
	Log       *logger.Logger
	Processor VideoProcessor
}

// ProcessVideo runs one claim-and-analyze attempt. A retryable outcome is returned as a
// retryable application error so the activity retry policy drives the backoff.
func (a *Activities) ProcessVideo(ctx context.Context, videoID string) (ProcessResult, error) {
	res := ProcessResult{VideoID: strings.TrimSpace(videoID)}
	if a == nil || a.Processor == nil {
		return res, temporal.NewNonRetryableApplicationError("videomod: activity not configured", ErrTypeInvalid, nil)
	}
	id, err := uuid.Parse(res.VideoID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("videomod: invalid video_id", ErrTypeInvalid, err)
	}

	stopHB := startHeartbeat(ctx, 10*time.Second)
	defer stopHB()

	out, err := a.Processor.Process(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidArgument) || errors.Is(err, pkgerrors.ErrNotFound) {
			return res, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalid, err)
		}
		// infrastructure failures (db, claim) are retried with the default policy
		return res, err
	}

	res.Claimed = out.Claimed
	res.State = string(out.State)
	res.Reason = out.Outcome.Reason
	if out.Outcome.IsOk() {
		res.Verdict = string(out.Outcome.Result.Verdict)
		res.SafetyScore = out.Outcome.Result.SafetyScore
	}
	if out.IsRetryable() {
		if a.Log != nil {
			a.Log.Warn("Video attempt retryable", "video_id", id, "reason", out.Outcome.Reason)
		}
		return res, temporal.NewApplicationErrorWithCause(out.Outcome.Reason, ErrTypeRetryable, out.Outcome.Err, res)
	}
	return res, nil
}

func startHeartbeat(ctx context.Context, every time.Duration) func() {
	if !activity.IsActivity(ctx) {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
