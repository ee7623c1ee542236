package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/jobs"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type PendingLister interface {
	ListByState(dbc dbctx.Context, state moderation.JobState, limit int) ([]*videos.Video, error)
}

type VideoProcessor interface {
	Process(ctx context.Context, videoID uuid.UUID) (jobs.Result, error)
}

type Config struct {
	Concurrency  int
	PollInterval time.Duration
}

// Worker polls for pending videos and processes them with a fixed pool of goroutines. The
// per-video claim keeps goroutines (and other processes) from analyzing the same video twice.
type Worker struct {
	log         *logger.Logger
	lister      PendingLister
	proc        VideoProcessor
	concurrency int
	poll        time.Duration
}

func NewWorker(baseLog *logger.Logger, lister PendingLister, proc VideoProcessor, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		log:         baseLog.With("component", "VideoWorker"),
		lister:      lister,
		proc:        proc,
		concurrency: cfg.Concurrency,
		poll:        cfg.PollInterval,
	}
}

// Run blocks until ctx is done and every loop has returned.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("Starting video worker pool", "concurrency", w.concurrency, "poll", w.poll)
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		workerID := i + 1
		go func() {
			defer wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
	wg.Wait()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			for ctx.Err() == nil {
				ok, err := w.claimOne(ctx, workerID)
				if err != nil {
					w.log.Warn("Pending poll failed", "worker_id", workerID, "error", err)
					break
				}
				if !ok {
					break
				}
			}
		}
	}
}

// claimOne processes the first pending video this loop manages to claim and reports whether
// the loop should keep draining.
func (w *Worker) claimOne(ctx context.Context, workerID int) (bool, error) {
	pending, err := w.lister.ListByState(dbctx.Of(ctx), moderation.JobPending, w.concurrency*2)
	if err != nil {
		return false, err
	}
	for _, v := range pending {
		if ctx.Err() != nil {
			return false, nil
		}
		res, err := w.safeProcess(ctx, v.ID)
		if err != nil {
			w.log.Warn("Process failed", "worker_id", workerID, "video_id", v.ID, "error", err)
			continue
		}
		if res.Claimed {
			// a retryable outcome waits for the next tick instead of spinning on the same video
			return !res.IsRetryable(), nil
		}
	}
	return false, nil
}

// ProcessPending runs one pass over up to limit pending videos in the calling goroutine.
func (w *Worker) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.lister.ListByState(dbctx.Of(ctx), moderation.JobPending, limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, v := range pending {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		res, err := w.safeProcess(ctx, v.ID)
		if err != nil {
			w.log.Warn("Process failed", "video_id", v.ID, "error", err)
			continue
		}
		if res.Claimed {
			processed++
		}
	}
	return processed, nil
}

func (w *Worker) safeProcess(ctx context.Context, id uuid.UUID) (res jobs.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Video processor panic", "video_id", id, "panic", r)
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return w.proc.Process(ctx, id)
}
