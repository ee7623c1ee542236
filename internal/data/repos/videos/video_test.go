package videos

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/data/repos/testutil"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
)

func safeResult() *moderation.FusedResult {
	return &moderation.FusedResult{
		Objects:         []moderation.Finding{},
		Evidence:        []moderation.Evidence{},
		Alerts:          moderation.NewAlertSet(),
		ConfidenceScore: 0.82,
		SafetyScore:     82,
		VisualState:     moderation.VerdictSafe,
		TextState:       moderation.TextStateClean,
		Verdict:         moderation.VerdictSafe,
		Explicit:        moderation.ExplicitSafe,
		Text:            moderation.TextAnalysis{Level: moderation.TextClean, ProblemWords: []string{}},
		Sources:         []moderation.Detector{moderation.DetectorObjectTracker},
	}
}

func TestVideoRepoClaimLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewVideoRepo(db, testutil.Logger(t))
	v := testutil.SeedVideo(t, ctx, tx, moderation.JobPending)

	ok, err := repo.TryClaim(dbc, v.ID)
	if err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	if !ok {
		t.Fatalf("expected first claim to succeed")
	}
	ok, err = repo.TryClaim(dbc, v.ID)
	if err != nil {
		t.Fatalf("TryClaim (second): %v", err)
	}
	if ok {
		t.Fatalf("expected second claim to fail while processing")
	}

	got, err := repo.GetByID(dbc, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.JobState() != moderation.JobProcessing || got.Attempts != 1 || got.ClaimedAt == nil {
		t.Fatalf("unexpected claimed row: state=%s attempts=%d claimed_at=%v", got.State, got.Attempts, got.ClaimedAt)
	}

	if err := repo.SetState(dbc, v.ID, moderation.JobCompleted, safeResult(), ""); err != nil {
		t.Fatalf("SetState completed: %v", err)
	}
	got, err = repo.GetByID(dbc, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.JobState() != moderation.JobCompleted || got.Verdict != string(moderation.VerdictSafe) {
		t.Fatalf("unexpected completed row: state=%s verdict=%s", got.State, got.Verdict)
	}
	if got.SafetyScore == nil || *got.SafetyScore != 82 || got.ProcessedAt == nil || got.ClaimedAt != nil {
		t.Fatalf("result columns not written: %+v", got)
	}
	res, err := got.FusedResult()
	if err != nil || res == nil || res.Verdict != moderation.VerdictSafe {
		t.Fatalf("stored result not decodable: res=%v err=%v", res, err)
	}

	ok, err = repo.TryClaim(dbc, v.ID)
	if err != nil {
		t.Fatalf("TryClaim (completed): %v", err)
	}
	if ok {
		t.Fatalf("completed videos must not be claimable")
	}

	events, err := repo.ListEvents(dbc, v.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 ledger events, got %d", len(events))
	}
	if events[0].FromState != "pending" || events[0].ToState != "processing" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].ToState != "completed" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestVideoRepoErrorIsClaimableAndClearsResult(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewVideoRepo(db, testutil.Logger(t))
	v := testutil.SeedVideo(t, ctx, tx, moderation.JobPending)

	if ok, err := repo.TryClaim(dbc, v.ID); err != nil || !ok {
		t.Fatalf("TryClaim: ok=%v err=%v", ok, err)
	}
	if err := repo.SetState(dbc, v.ID, moderation.JobError, safeResult(), "object_tracker: permission denied"); err != nil {
		t.Fatalf("SetState error: %v", err)
	}
	got, err := repo.GetByID(dbc, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.JobState() != moderation.JobError || got.StateReason != "object_tracker: permission denied" {
		t.Fatalf("unexpected error row: %+v", got)
	}
	if got.Verdict != "" || got.SafetyScore != nil {
		t.Fatalf("error rows must not carry a verdict: verdict=%q score=%v", got.Verdict, got.SafetyScore)
	}

	ok, err := repo.TryClaim(dbc, v.ID)
	if err != nil {
		t.Fatalf("TryClaim (error): %v", err)
	}
	if !ok {
		t.Fatalf("errored videos must be claimable")
	}
	got, _ = repo.GetByID(dbc, v.ID)
	if got.Attempts != 2 {
		t.Fatalf("expected attempts=2, got %d", got.Attempts)
	}
}

func TestVideoRepoSetStateValidation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewVideoRepo(db, testutil.Logger(t))
	v := testutil.SeedVideo(t, ctx, tx, moderation.JobProcessing)

	if err := repo.SetState(dbc, v.ID, moderation.JobCompleted, nil, ""); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := repo.SetState(dbc, v.ID, moderation.JobState("done"), nil, ""); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := repo.SetState(dbc, uuid.New(), moderation.JobError, nil, "x"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVideoRepoResetStale(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewVideoRepo(db, testutil.Logger(t))
	now := time.Now().UTC()
	old := testutil.SeedProcessingVideo(t, ctx, tx, now.Add(-3*time.Hour))
	fresh := testutil.SeedProcessingVideo(t, ctx, tx, now.Add(-10*time.Minute))
	done := testutil.SeedVideo(t, ctx, tx, moderation.JobCompleted)

	reset, err := repo.ResetStale(dbc, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if len(reset) != 1 || reset[0].VideoID != old.ID.String() {
		t.Fatalf("expected only the old video reset, got %+v", reset)
	}
	if moderation.Classify(reset[0]) != moderation.ClassStale {
		t.Fatalf("reset entries should classify as stale")
	}

	got, _ := repo.GetByID(dbc, old.ID)
	if got.JobState() != moderation.JobPending || got.StateReason != moderation.StaleResetReason {
		t.Fatalf("old video not reset: state=%s reason=%q", got.State, got.StateReason)
	}
	got, _ = repo.GetByID(dbc, fresh.ID)
	if got.JobState() != moderation.JobProcessing {
		t.Fatalf("fresh video should stay processing, got %s", got.State)
	}
	got, _ = repo.GetByID(dbc, done.ID)
	if got.JobState() != moderation.JobCompleted {
		t.Fatalf("completed video should be untouched, got %s", got.State)
	}

	again, err := repo.ResetStale(dbc, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("ResetStale (again): %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second sweep should reset nothing, got %d", len(again))
	}
}

func TestVideoRepoRequeue(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewVideoRepo(db, testutil.Logger(t))
	v := testutil.SeedVideo(t, ctx, tx, moderation.JobPending)
	if ok, err := repo.TryClaim(dbc, v.ID); err != nil || !ok {
		t.Fatalf("TryClaim: ok=%v err=%v", ok, err)
	}

	ok, err := repo.Requeue(dbc, v.ID, "operator")
	if err != nil {
		t.Fatalf("Requeue (processing): %v", err)
	}
	if ok {
		t.Fatalf("processing videos must not be requeued")
	}

	if err := repo.SetState(dbc, v.ID, moderation.JobCompleted, safeResult(), ""); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	ok, err = repo.Requeue(dbc, v.ID, "operator")
	if err != nil || !ok {
		t.Fatalf("Requeue (completed): ok=%v err=%v", ok, err)
	}
	got, _ := repo.GetByID(dbc, v.ID)
	if got.JobState() != moderation.JobPending || got.Verdict != "" || len(got.Result) != 0 {
		t.Fatalf("requeue should clear the result: %+v", got)
	}

	if _, err := repo.Requeue(dbc, uuid.New(), "operator"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVideoRepoListAndStats(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewVideoRepo(db, testutil.Logger(t))
	before, err := repo.Stats(dbc)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	a := testutil.SeedVideo(t, ctx, tx, moderation.JobPending)
	b := testutil.SeedVideo(t, ctx, tx, moderation.JobPending)
	testutil.SeedVideo(t, ctx, tx, moderation.JobError)
	testutil.SeedVideo(t, ctx, tx, moderation.JobCompleted)

	pending, err := repo.ListByState(dbc, moderation.JobPending, 500)
	if err != nil {
		t.Fatalf("ListByState: %v", err)
	}
	seen := map[uuid.UUID]bool{}
	for _, v := range pending {
		if v.JobState() != moderation.JobPending {
			t.Fatalf("ListByState returned %s row", v.State)
		}
		seen[v.ID] = true
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("seeded pending videos missing from list")
	}
	if _, err := repo.ListByState(dbc, moderation.JobState("bogus"), 1); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	stats, err := repo.Stats(dbc)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != before.Total+4 {
		t.Fatalf("expected total %d, got %d", before.Total+4, stats.Total)
	}
	if stats.Count(moderation.JobPending) != before.Count(moderation.JobPending)+2 {
		t.Fatalf("pending count off: %+v", stats)
	}
	if len(stats.States) != len(moderation.AllJobStates) {
		t.Fatalf("expected every state listed, got %+v", stats.States)
	}
	var pct float64
	for _, s := range stats.States {
		pct += s.Percent
	}
	if pct < 99.9 || pct > 100.1 {
		t.Fatalf("percentages should sum to 100, got %v", pct)
	}

	got, err := repo.GetByIDs(dbc, []uuid.UUID{a.ID, b.ID})
	if err != nil || len(got) != 2 {
		t.Fatalf("GetByIDs: n=%d err=%v", len(got), err)
	}
}

func TestVideoRepoConcurrentClaimIsSingleFlight(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewVideoRepo(db, testutil.Logger(t))

	v := testutil.SeedVideo(t, ctx, db, moderation.JobPending)
	t.Cleanup(func() {
		db.Where("video_id = ?", v.ID).Delete(&videos.VideoJobEvent{})
		db.Where("id = ?", v.ID).Delete(&videos.Video{})
	})

	const claimers = 8
	var wins int32
	var wg sync.WaitGroup
	errs := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryClaim(dbctx.Of(ctx), v.ID)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("TryClaim: %v", err)
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins)
	}
}

func TestVideoRepoLateWriterAfterStaleResetIsRejected(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewVideoRepo(db, testutil.Logger(t))
	v := testutil.SeedVideo(t, ctx, tx, moderation.JobPending)

	if ok, err := repo.TryClaim(dbc, v.ID); err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if reset, err := repo.ResetStale(dbc, time.Now().UTC().Add(time.Hour)); err != nil || len(reset) != 1 {
		t.Fatalf("ResetStale: reset=%d err=%v", len(reset), err)
	}

	// the first worker finishes after its claim was reset
	if err := repo.SetStateForAttempt(dbc, v.ID, 1, moderation.JobCompleted, safeResult(), ""); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("pending->completed must be rejected, got %v", err)
	}
	if err := repo.SetState(dbc, v.ID, moderation.JobCompleted, safeResult(), ""); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("unbound pending->completed must be rejected, got %v", err)
	}

	if ok, err := repo.TryClaim(dbc, v.ID); err != nil || !ok {
		t.Fatalf("second claim: ok=%v err=%v", ok, err)
	}
	if err := repo.SetStateForAttempt(dbc, v.ID, 1, moderation.JobError, nil, "object_tracker: timeout"); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("stale attempt must not overwrite the new claim, got %v", err)
	}
	if err := repo.SetStateForAttempt(dbc, v.ID, 2, moderation.JobCompleted, safeResult(), ""); err != nil {
		t.Fatalf("current attempt: %v", err)
	}
	if err := repo.SetStateForAttempt(dbc, v.ID, 1, moderation.JobError, nil, "late"); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("completed->error must be rejected, got %v", err)
	}

	got, err := repo.GetByID(dbc, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.JobState() != moderation.JobCompleted || got.Verdict != string(moderation.VerdictSafe) {
		t.Fatalf("completed result was overwritten: state=%s verdict=%q", got.State, got.Verdict)
	}
	if err := repo.SetState(dbc, v.ID, moderation.JobProcessing, nil, ""); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("processing must only be entered by claim, got %v", err)
	}
}
