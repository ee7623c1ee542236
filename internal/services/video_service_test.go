package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/data/repos"
	"github.com/yungbote/videoguard-backend/internal/data/repos/testutil"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
)

type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (e *recordingEnqueuer) Enqueue(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, id)
	return e.err
}

type recordingPublisher struct {
	events []videos.StatusEvent
}

func (p *recordingPublisher) PublishStatus(ctx context.Context, ev videos.StatusEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func newTestService(t *testing.T) (VideoService, repos.VideoRepo, *recordingEnqueuer, *recordingPublisher) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewVideoRepo(db, log)
	enq := &recordingEnqueuer{}
	pub := &recordingPublisher{}
	return NewVideoService(log, repo, enq, pub), repo, enq, pub
}

func TestSubmitCreatesPendingAndEnqueues(t *testing.T) {
	svc, _, enq, _ := newTestService(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	v, err := svc.Submit(dbc, SubmitVideoInput{Title: " clip ", URI: "gs://bucket/" + uuid.NewString() + ".mp4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if v.JobState() != moderation.JobPending || v.Title != "clip" {
		t.Fatalf("unexpected video: %+v", v)
	}
	if len(enq.ids) != 1 || enq.ids[0] != v.ID {
		t.Fatalf("expected one enqueue for %s, got %v", v.ID, enq.ids)
	}
}

func TestSubmitKeepsVideoWhenEnqueueFails(t *testing.T) {
	svc, repo, enq, _ := newTestService(t)
	enq.err = errors.New("temporal down")
	dbc := dbctx.Context{Ctx: context.Background()}

	v, err := svc.Submit(dbc, SubmitVideoInput{URI: "gs://bucket/" + uuid.NewString() + ".mp4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got, err := repo.GetByID(dbc, v.ID)
	if err != nil || got.JobState() != moderation.JobPending {
		t.Fatalf("video should stay pending: %v %v", got, err)
	}
}

func TestSubmitRejectsBadURI(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	for _, uri := range []string{"", "https://example.com/a.mp4", "gs://bucket-only"} {
		if _, err := svc.Submit(dbc, SubmitVideoInput{URI: uri}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Errorf("uri %q: expected ErrInvalidArgument, got %v", uri, err)
		}
	}
}

func TestStatusesKeepsOrderAndReportsMissing(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: ctx}

	done := testutil.SeedVideo(t, ctx, db, moderation.JobPending)
	if ok, err := repo.TryClaim(dbc, done.ID); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	res := &moderation.FusedResult{
		Verdict:     moderation.VerdictRisky,
		SafetyScore: 40,
		Alerts:      moderation.NewAlertSet(moderation.AlertWeaponBlade),
		Reason:      "blade",
	}
	if err := repo.SetState(dbc, done.ID, moderation.JobCompleted, res, ""); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	pending := testutil.SeedVideo(t, ctx, db, moderation.JobPending)
	unknown := uuid.New()

	rows, missing, err := svc.Statuses(dbc, []uuid.UUID{pending.ID, unknown, done.ID, pending.ID})
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(rows) != 2 || rows[0].VideoID != pending.ID || rows[1].VideoID != done.ID {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if len(missing) != 1 || missing[0] != unknown {
		t.Fatalf("unexpected missing: %v", missing)
	}
	if rows[1].Verdict != string(moderation.VerdictRisky) || rows[1].Status.Text == string(moderation.VerdictSafe) {
		t.Fatalf("completed row should be risky: %+v", rows[1])
	}
	if _, _, err := svc.Statuses(dbc, nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty ids, got %v", err)
	}
}

func TestReprocessRequeuesAndPublishes(t *testing.T) {
	svc, repo, enq, pub := newTestService(t)
	ctx := context.Background()
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: ctx}

	v := testutil.SeedVideo(t, ctx, db, moderation.JobError)
	ok, err := svc.Reprocess(dbc, v.ID, "")
	if err != nil || !ok {
		t.Fatalf("Reprocess: %v %v", ok, err)
	}
	got, _ := repo.GetByID(dbc, v.ID)
	if got.JobState() != moderation.JobPending || got.StateReason != ReprocessReason {
		t.Fatalf("unexpected state after reprocess: %s %q", got.State, got.StateReason)
	}
	if len(pub.events) != 1 || pub.events[0].FromState != string(moderation.JobError) {
		t.Fatalf("expected one status event from error, got %+v", pub.events)
	}
	if len(enq.ids) != 1 || enq.ids[0] != v.ID {
		t.Fatalf("expected enqueue for %s, got %v", v.ID, enq.ids)
	}

	busy := testutil.SeedProcessingVideo(t, ctx, db, time.Now().UTC())
	ok, err = svc.Reprocess(dbc, busy.ID, "again")
	if err != nil || ok {
		t.Fatalf("processing video must not be requeued: %v %v", ok, err)
	}
	if _, err := svc.Reprocess(dbc, uuid.New(), ""); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
