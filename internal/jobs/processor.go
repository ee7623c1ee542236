package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// Store is the job-state slice of the video repo.
type Store interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*videos.Video, error)
	TryClaim(dbc dbctx.Context, id uuid.UUID) (bool, error)
	SetStateForAttempt(dbc dbctx.Context, id uuid.UUID, attempt int, state moderation.JobState, result *moderation.FusedResult, reason string) error
}

type Analyzer interface {
	Analyze(ctx context.Context, uri string) moderation.Outcome
}

type StatusNotifier interface {
	PublishStatus(ctx context.Context, ev videos.StatusEvent) error
}

type Recorder interface {
	ObserveJob(out moderation.Outcome, elapsed time.Duration)
	IncClaimSkipped()
}

// Result is what one delivery of a video did.
type Result struct {
	VideoID uuid.UUID
	Claimed bool
	Outcome moderation.Outcome
	State   moderation.JobState
}

type Processor struct {
	log      *logger.Logger
	store    Store
	analyzer Analyzer
	notifier StatusNotifier
	recorder Recorder
}

type ProcessorOptions struct {
	Notifier StatusNotifier
	Recorder Recorder
}

func NewProcessor(baseLog *logger.Logger, store Store, analyzer Analyzer, opts ProcessorOptions) *Processor {
	return &Processor{
		log:      baseLog.With("component", "VideoProcessor"),
		store:    store,
		analyzer: analyzer,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
	}
}

// Process claims the video and runs one analysis attempt. A video that is already processing
// or completed is reported with Claimed=false and left untouched.
func (p *Processor) Process(ctx context.Context, videoID uuid.UUID) (Result, error) {
	out := Result{VideoID: videoID}
	if videoID == uuid.Nil {
		return out, fmt.Errorf("%w: video id is required", pkgerrors.ErrInvalidArgument)
	}
	claimed, err := p.store.TryClaim(dbctx.Of(ctx), videoID)
	if err != nil {
		return out, fmt.Errorf("claim video %s: %w", videoID, err)
	}
	if !claimed {
		if p.recorder != nil {
			p.recorder.IncClaimSkipped()
		}
		p.log.Debug("Video not claimable, skipping", "video_id", videoID)
		return out, nil
	}
	out.Claimed = true
	p.notify(ctx, videoID, "", moderation.JobProcessing, nil, "")

	v, err := p.store.GetByID(dbctx.Of(ctx), videoID)
	if err != nil {
		// the row was just claimed; losing it now leaves it for the stale sweep
		return out, fmt.Errorf("load claimed video %s: %w", videoID, err)
	}

	start := time.Now()
	outcome := p.analyze(ctx, v)
	out.Outcome = outcome
	if p.recorder != nil {
		p.recorder.ObserveJob(outcome, time.Since(start))
	}

	state, result, reason := transitionFor(outcome)
	out.State = state

	// persist even when the delivery context was cancelled mid-analysis
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	err = p.store.SetStateForAttempt(dbctx.Of(writeCtx), videoID, v.Attempts, state, result, reason)
	if errors.Is(err, pkgerrors.ErrInvalidTransition) {
		// the stale sweep reset this claim and another delivery owns the row now
		p.log.Warn("Claim lost before the outcome was recorded", "video_id", videoID, "attempt", v.Attempts, "state", state, "error", err)
		out.Claimed = false
		out.State = ""
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("record %s for video %s: %w", state, videoID, err)
	}
	p.notify(writeCtx, videoID, moderation.JobProcessing, state, result, reason)

	fields := []interface{}{"video_id", videoID, "state", state, "attempt", v.Attempts, "elapsed", time.Since(start)}
	switch {
	case outcome.IsOk():
		p.log.Info("Video moderated", append(fields, "verdict", result.Verdict, "safety_score", result.SafetyScore)...)
	case outcome.IsRetryable():
		p.log.Warn("Video analysis will be retried", append(fields, "reason", reason)...)
	default:
		p.log.Error("Video analysis failed", append(fields, "reason", reason)...)
	}
	return out, nil
}

func (p *Processor) analyze(ctx context.Context, v *videos.Video) (out moderation.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Analysis panic", "video_id", v.ID, "panic", r)
			out = moderation.Fatal("internal error during analysis", &panicError{Val: r})
		}
	}()
	return p.analyzer.Analyze(ctx, v.URI)
}

// transitionFor maps an outcome onto the job state machine. Retryable goes back to pending;
// everything that is not a usable result ends in error, never completed.
func transitionFor(o moderation.Outcome) (moderation.JobState, *moderation.FusedResult, string) {
	switch {
	case o.IsOk():
		return moderation.JobCompleted, o.Result, ""
	case o.IsRetryable():
		return moderation.JobPending, nil, reasonOf(o)
	default:
		return moderation.JobError, nil, reasonOf(o)
	}
}

func reasonOf(o moderation.Outcome) string {
	if o.Reason != "" {
		return o.Reason
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	if o.Kind == moderation.OutcomeOk {
		return "analysis returned no result"
	}
	return string(o.Kind)
}

func (p *Processor) notify(ctx context.Context, id uuid.UUID, from, to moderation.JobState, res *moderation.FusedResult, reason string) {
	if p.notifier == nil {
		return
	}
	ev := videos.StatusEvent{
		VideoID:   id,
		FromState: string(from),
		State:     string(to),
		Reason:    reason,
		At:        time.Now().UTC(),
	}
	if res != nil {
		ev.Verdict = string(res.Verdict)
		score := res.SafetyScore
		ev.SafetyScore = &score
	}
	if err := p.notifier.PublishStatus(ctx, ev); err != nil {
		p.log.Warn("Status publish failed", "video_id", id, "state", to, "error", err)
	}
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }

// IsRetryable reports whether a Process result should be redelivered by the caller.
func (r Result) IsRetryable() bool {
	return r.Claimed && r.Outcome.IsRetryable()
}
