package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/data/repos"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
	"github.com/yungbote/videoguard-backend/internal/services"
)

type fakeVideos struct {
	videos      map[uuid.UUID]*videos.Video
	processing  map[uuid.UUID]bool
	lastReason  string
	statusCalls [][]uuid.UUID
}

func newFakeVideos() *fakeVideos {
	return &fakeVideos{videos: map[uuid.UUID]*videos.Video{}, processing: map[uuid.UUID]bool{}}
}

func (f *fakeVideos) Submit(dbc dbctx.Context, in services.SubmitVideoInput) (*videos.Video, error) {
	if !strings.HasPrefix(in.URI, "gs://") {
		return nil, pkgerrors.ErrInvalidArgument
	}
	v := &videos.Video{ID: uuid.New(), URI: in.URI, State: string(moderation.JobPending)}
	f.videos[v.ID] = v
	return v, nil
}

func (f *fakeVideos) Get(dbc dbctx.Context, id uuid.UUID) (*videos.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return v, nil
}

func (f *fakeVideos) Events(dbc dbctx.Context, id uuid.UUID) ([]*videos.VideoJobEvent, error) {
	if _, err := f.Get(dbc, id); err != nil {
		return nil, err
	}
	return []*videos.VideoJobEvent{{VideoID: id, ToState: string(moderation.JobPending)}}, nil
}

func (f *fakeVideos) List(dbc dbctx.Context, state moderation.JobState, limit int) ([]*videos.Video, error) {
	if !state.Valid() {
		return nil, pkgerrors.ErrInvalidArgument
	}
	out := []*videos.Video{}
	for _, v := range f.videos {
		if v.JobState() == state && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVideos) Statuses(dbc dbctx.Context, ids []uuid.UUID) ([]services.VideoStatus, []uuid.UUID, error) {
	f.statusCalls = append(f.statusCalls, ids)
	rows := []services.VideoStatus{}
	missing := []uuid.UUID{}
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			rows = append(rows, services.VideoStatus{VideoID: id, State: v.JobState()})
		} else {
			missing = append(missing, id)
		}
	}
	return rows, missing, nil
}

func (f *fakeVideos) Reprocess(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error) {
	if _, err := f.Get(dbc, id); err != nil {
		return false, err
	}
	f.lastReason = reason
	return !f.processing[id], nil
}

func (f *fakeVideos) Stats(dbc dbctx.Context) (repos.VideoStats, error) {
	return repos.VideoStats{Total: int64(len(f.videos))}, nil
}

type fakeSweeper struct{ reset []*moderation.StaleProcessingError }

func (s *fakeSweeper) SweepOnce(ctx context.Context) ([]*moderation.StaleProcessingError, error) {
	return s.reset, nil
}

func videoRouter(svc services.VideoService, sw StaleSweeper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewVideoHandlerWithDeps(VideoHandlerDeps{Videos: svc, Sweeper: sw})
	r := gin.New()
	r.POST("/admin/videos", h.Submit)
	r.GET("/admin/videos", h.List)
	r.GET("/admin/videos/status", h.Status)
	r.GET("/admin/videos/:id", h.Get)
	r.GET("/admin/videos/:id/events", h.Events)
	r.POST("/admin/videos/:id/reprocess", h.Reprocess)
	r.GET("/admin/stats", h.Stats)
	r.POST("/admin/sweep", h.Sweep)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAndGet(t *testing.T) {
	svc := newFakeVideos()
	r := videoRouter(svc, nil)

	rec := do(r, http.MethodPost, "/admin/videos", `{"uri":"gs://b/clip.mp4","title":"clip"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Video videos.Video `json:"video"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec := do(r, http.MethodGet, "/admin/videos/"+created.Video.ID.String(), ""); rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/admin/videos/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get unknown: %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/admin/videos", `{"uri":"https://x/y.mp4"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("submit bad uri: %d", rec.Code)
	}
}

func TestStatusParsesIDs(t *testing.T) {
	svc := newFakeVideos()
	known := &videos.Video{ID: uuid.New(), State: string(moderation.JobCompleted)}
	svc.videos[known.ID] = known
	unknown := uuid.New()
	r := videoRouter(svc, nil)

	rec := do(r, http.MethodGet, "/admin/videos/status?ids="+known.ID.String()+","+unknown.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Videos  []services.VideoStatus `json:"videos"`
		Missing []uuid.UUID            `json:"missing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Videos) != 1 || body.Videos[0].VideoID != known.ID || len(body.Missing) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = do(r, http.MethodGet, "/admin/videos/status?ids="+known.ID.String()+"&ids="+unknown.String(), "")
	if rec.Code != http.StatusOK || len(svc.statusCalls[1]) != 2 {
		t.Fatalf("repeated ids not accepted: %d", rec.Code)
	}
	for _, q := range []string{"", "?ids=", "?ids=nope"} {
		if rec := do(r, http.MethodGet, "/admin/videos/status"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestReprocess(t *testing.T) {
	svc := newFakeVideos()
	done := &videos.Video{ID: uuid.New(), State: string(moderation.JobCompleted)}
	busy := &videos.Video{ID: uuid.New(), State: string(moderation.JobProcessing)}
	svc.videos[done.ID] = done
	svc.videos[busy.ID] = busy
	svc.processing[busy.ID] = true
	r := videoRouter(svc, nil)

	if rec := do(r, http.MethodPost, "/admin/videos/"+done.ID.String()+"/reprocess", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("reprocess: %d %s", rec.Code, rec.Body.String())
	}
	if svc.lastReason != services.ReprocessReason {
		t.Fatalf("default reason not applied: %q", svc.lastReason)
	}
	if rec := do(r, http.MethodPost, "/admin/videos/"+done.ID.String()+"/reprocess", `{"reason":"appeal"}`); rec.Code != http.StatusAccepted || svc.lastReason != "appeal" {
		t.Fatalf("reprocess with reason: %d %q", rec.Code, svc.lastReason)
	}
	if rec := do(r, http.MethodPost, "/admin/videos/"+busy.ID.String()+"/reprocess", ""); rec.Code != http.StatusConflict {
		t.Fatalf("processing video: expected 409, got %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/admin/videos/bad/reprocess", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestListStatsAndSweep(t *testing.T) {
	svc := newFakeVideos()
	p := &videos.Video{ID: uuid.New(), State: string(moderation.JobPending)}
	svc.videos[p.ID] = p
	sw := &fakeSweeper{reset: []*moderation.StaleProcessingError{{VideoID: p.ID.String(), Since: time.Now()}}}
	r := videoRouter(svc, sw)

	if rec := do(r, http.MethodGet, "/admin/videos?state=pending", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), p.ID.String()) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(r, http.MethodGet, "/admin/videos?state=bogus", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("list bogus state: %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/admin/videos?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("list bad limit: %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/admin/stats", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("stats: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(r, http.MethodPost, "/admin/sweep", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"reset":1`) {
		t.Fatalf("sweep: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(videoRouter(svc, nil), http.MethodPost, "/admin/sweep", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("sweep without sweeper: %d", rec.Code)
	}
}
