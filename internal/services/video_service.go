package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/clients/gcp"
	"github.com/yungbote/videoguard-backend/internal/data/repos"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/moderation/status"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

const (
	ReprocessReason = "reprocess requested"
	maxStatusIDs    = 200
)

// VideoEnqueuer hands a pending video to the delivery layer. Without one, pending videos are
// picked up by the polling worker.
type VideoEnqueuer interface {
	Enqueue(ctx context.Context, videoID uuid.UUID) error
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, ev videos.StatusEvent) error
}

type SubmitVideoInput struct {
	Title      string     `json:"title"`
	URI        string     `json:"uri"`
	UploaderID *uuid.UUID `json:"uploader_id,omitempty"`
}

// VideoStatus is the admin list row for one video.
type VideoStatus struct {
	VideoID     uuid.UUID               `json:"video_id"`
	Title       string                  `json:"title,omitempty"`
	State       moderation.JobState     `json:"state"`
	StateReason string                  `json:"state_reason,omitempty"`
	Attempts    int                     `json:"attempts"`
	Verdict     string                  `json:"verdict,omitempty"`
	Confidence  *float64                `json:"confidence_score,omitempty"`
	SafetyScore *int                    `json:"safety_score,omitempty"`
	TextLevel   string                  `json:"text_level,omitempty"`
	Explicit    string                  `json:"explicit,omitempty"`
	Status      status.ModerationStatus `json:"status"`
	Display     status.DisplayScore     `json:"display_score"`
	ProcessedAt *time.Time              `json:"processed_at,omitempty"`
}

type VideoService interface {
	Submit(dbc dbctx.Context, in SubmitVideoInput) (*videos.Video, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*videos.Video, error)
	Events(dbc dbctx.Context, id uuid.UUID) ([]*videos.VideoJobEvent, error)
	List(dbc dbctx.Context, state moderation.JobState, limit int) ([]*videos.Video, error)
	Statuses(dbc dbctx.Context, ids []uuid.UUID) ([]VideoStatus, []uuid.UUID, error)
	Reprocess(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error)
	Stats(dbc dbctx.Context) (repos.VideoStats, error)
}

type videoService struct {
	log      *logger.Logger
	repo     repos.VideoRepo
	enqueuer VideoEnqueuer
	notify   StatusPublisher
}

func NewVideoService(baseLog *logger.Logger, repo repos.VideoRepo, enqueuer VideoEnqueuer, notify StatusPublisher) VideoService {
	return &videoService{
		log:      baseLog.With("service", "VideoService"),
		repo:     repo,
		enqueuer: enqueuer,
		notify:   notify,
	}
}

func (s *videoService) Submit(dbc dbctx.Context, in SubmitVideoInput) (*videos.Video, error) {
	uri := strings.TrimSpace(in.URI)
	if err := validateVideoURI(uri); err != nil {
		return nil, err
	}
	v := &videos.Video{
		ID:         uuid.New(),
		Title:      strings.TrimSpace(in.Title),
		URI:        uri,
		UploaderID: in.UploaderID,
		State:      string(moderation.JobPending),
	}
	if _, err := s.repo.Create(dbc, []*videos.Video{v}); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	s.log.Info("Video submitted", "video_id", v.ID, "uploader_id", in.UploaderID)
	s.dispatch(dbc.Ctx, v.ID)
	return v, nil
}

func (s *videoService) Get(dbc dbctx.Context, id uuid.UUID) (*videos.Video, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: video id is required", pkgerrors.ErrInvalidArgument)
	}
	return s.repo.GetByID(dbc, id)
}

func (s *videoService) Events(dbc dbctx.Context, id uuid.UUID) ([]*videos.VideoJobEvent, error) {
	if _, err := s.Get(dbc, id); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(dbc, id)
}

func (s *videoService) List(dbc dbctx.Context, state moderation.JobState, limit int) ([]*videos.Video, error) {
	return s.repo.ListByState(dbc, state, limit)
}

// Statuses returns one row per known id, in request order, plus the ids that do not exist.
func (s *videoService) Statuses(dbc dbctx.Context, ids []uuid.UUID) ([]VideoStatus, []uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one id is required", pkgerrors.ErrInvalidArgument)
	}
	if len(ids) > maxStatusIDs {
		return nil, nil, fmt.Errorf("%w: at most %d ids per request", pkgerrors.ErrInvalidArgument, maxStatusIDs)
	}
	rows, err := s.repo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*videos.Video, len(rows))
	for _, v := range rows {
		byID[v.ID] = v
	}
	out := make([]VideoStatus, 0, len(rows))
	missing := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		v, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, s.statusOf(v))
	}
	return out, missing, nil
}

func (s *videoService) statusOf(v *videos.Video) VideoStatus {
	rec, err := status.FromVideo(v)
	if err != nil {
		// columns still carry verdict and levels; only the decoded detail is lost
		s.log.Warn("Stored moderation result unreadable", "video_id", v.ID, "error", err)
	}
	return VideoStatus{
		VideoID:     v.ID,
		Title:       v.Title,
		State:       v.JobState(),
		StateReason: v.StateReason,
		Attempts:    v.Attempts,
		Verdict:     v.Verdict,
		Confidence:  v.ConfidenceScore,
		SafetyScore: v.SafetyScore,
		TextLevel:   v.TextLevel,
		Explicit:    v.Explicit,
		Status:      status.Derive(rec),
		Display:     status.SafetyDisplay(rec),
		ProcessedAt: v.ProcessedAt,
	}
}

// Reprocess returns the video to pending with its result cleared and hands it to the delivery
// layer. It reports false when the video is currently processing.
func (s *videoService) Reprocess(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error) {
	if id == uuid.Nil {
		return false, fmt.Errorf("%w: video id is required", pkgerrors.ErrInvalidArgument)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = ReprocessReason
	}
	prev, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.Requeue(dbc, id, reason)
	if err != nil {
		return false, fmt.Errorf("requeue video %s: %w", id, err)
	}
	if !ok {
		s.log.Info("Reprocess skipped; video is processing", "video_id", id)
		return false, nil
	}
	if s.notify != nil {
		ev := videos.StatusEvent{
			VideoID:   id,
			FromState: prev.State,
			State:     string(moderation.JobPending),
			Reason:    reason,
			At:        time.Now().UTC(),
		}
		if err := s.notify.PublishStatus(dbc.Ctx, ev); err != nil {
			s.log.Warn("Status publish failed", "video_id", id, "error", err)
		}
	}
	s.dispatch(dbc.Ctx, id)
	return true, nil
}

func (s *videoService) Stats(dbc dbctx.Context) (repos.VideoStats, error) {
	return s.repo.Stats(dbc)
}

// dispatch failures are logged only: the row is pending, so the polling worker or a later
// reprocess still reaches it.
func (s *videoService) dispatch(ctx context.Context, id uuid.UUID) {
	if s.enqueuer == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.enqueuer.Enqueue(ctx, id); err != nil {
		s.log.Warn("Enqueue failed; leaving video pending", "video_id", id, "error", err)
	}
}

func validateVideoURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: uri is required", pkgerrors.ErrInvalidArgument)
	}
	if _, _, err := gcp.ParseGCSURI(uri); err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}
	return nil
}
