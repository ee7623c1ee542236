package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
)

type memStore struct {
	mu      sync.Mutex
	videos  map[uuid.UUID]*videos.Video
	results map[uuid.UUID]*moderation.FusedResult
	setErr  error
	stale   []*moderation.StaleProcessingError
	cutoffs []time.Time
}

func newMemStore(vs ...*videos.Video) *memStore {
	s := &memStore{videos: map[uuid.UUID]*videos.Video{}, results: map[uuid.UUID]*moderation.FusedResult{}}
	for _, v := range vs {
		s.videos[v.ID] = v
	}
	return s
}

func (s *memStore) GetByID(dbc dbctx.Context, id uuid.UUID) (*videos.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *memStore) TryClaim(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok || !v.JobState().Claimable() {
		return false, nil
	}
	v.State = string(moderation.JobProcessing)
	v.Attempts++
	return true, nil
}

func (s *memStore) SetStateForAttempt(dbc dbctx.Context, id uuid.UUID, attempt int, state moderation.JobState, result *moderation.FusedResult, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	v, ok := s.videos[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	if v.JobState() != moderation.JobProcessing || v.Attempts != attempt {
		return pkgerrors.ErrInvalidTransition
	}
	v.State = string(state)
	v.StateReason = reason
	s.results[id] = result
	return nil
}

func (s *memStore) ResetStale(dbc dbctx.Context, cutoff time.Time) ([]*moderation.StaleProcessingError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.stale, nil
}

func (s *memStore) state(id uuid.UUID) moderation.JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[id].JobState()
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	out   moderation.Outcome
	calls int
	panic bool
	block chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, uri string) moderation.Outcome {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panic {
		panic("detector exploded")
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return moderation.Retryable("cancelled", ctx.Err())
		}
	}
	return f.out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []videos.StatusEvent
}

func (n *recordingNotifier) PublishStatus(ctx context.Context, ev videos.StatusEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

type countingRecorder struct {
	mu      sync.Mutex
	jobs    []moderation.OutcomeKind
	skipped int
	resets  int
}

func (r *countingRecorder) ObserveJob(out moderation.Outcome, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, out.Kind)
}

func (r *countingRecorder) IncClaimSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

func (r *countingRecorder) AddStaleResets(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets += n
}

func pendingVideo() *videos.Video {
	return &videos.Video{
		ID:    uuid.New(),
		URI:   "gs://bucket/clip.mp4",
		State: string(moderation.JobPending),
	}
}

func threateningResult() *moderation.FusedResult {
	return &moderation.FusedResult{
		Alerts:          moderation.NewAlertSet(moderation.AlertWeaponBlade),
		ConfidenceScore: 0.3,
		SafetyScore:     30,
		VisualState:     moderation.VerdictThreatening,
		TextState:       moderation.TextStateClean,
		Verdict:         moderation.VerdictThreatening,
		HardRule:        "neck_cut_with_blade",
	}
}
