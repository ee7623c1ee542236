package jobs

import (
	"context"
	"time"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

const (
	DefaultStaleAfter    = 2 * time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

type StaleResetter interface {
	ResetStale(dbc dbctx.Context, cutoff time.Time) ([]*moderation.StaleProcessingError, error)
}

type SweepRecorder interface {
	AddStaleResets(n int)
}

// Sweeper returns videos stuck in processing to pending so a later delivery can claim them.
type Sweeper struct {
	log        *logger.Logger
	store      StaleResetter
	recorder   SweepRecorder
	staleAfter time.Duration
	interval   time.Duration
	now        func() time.Time
}

func NewSweeper(baseLog *logger.Logger, store StaleResetter, recorder SweepRecorder, staleAfter, interval time.Duration) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		log:        baseLog.With("component", "StaleSweeper"),
		store:      store,
		recorder:   recorder,
		staleAfter: staleAfter,
		interval:   interval,
		now:        time.Now,
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) ([]*moderation.StaleProcessingError, error) {
	cutoff := s.now().UTC().Add(-s.staleAfter)
	reset, err := s.store.ResetStale(dbctx.Of(ctx), cutoff)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.AddStaleResets(len(reset))
	}
	if len(reset) > 0 {
		s.log.Warn("Stale processing videos reset", "count", len(reset), "cutoff", cutoff)
	}
	return reset, nil
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Warn("Stale sweep failed", "error", err)
			}
		}
	}
}
