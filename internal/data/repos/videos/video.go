package videos

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// VideoRepo owns the per-video job state. TryClaim is the only path into processing.
type VideoRepo interface {
	Create(dbc dbctx.Context, vids []*videos.Video) ([]*videos.Video, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*videos.Video, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*videos.Video, error)
	ListByState(dbc dbctx.Context, state moderation.JobState, limit int) ([]*videos.Video, error)
	ListEvents(dbc dbctx.Context, id uuid.UUID) ([]*videos.VideoJobEvent, error)
	TryClaim(dbc dbctx.Context, id uuid.UUID) (bool, error)
	SetState(dbc dbctx.Context, id uuid.UUID, state moderation.JobState, result *moderation.FusedResult, reason string) error
	SetStateForAttempt(dbc dbctx.Context, id uuid.UUID, attempt int, state moderation.JobState, result *moderation.FusedResult, reason string) error
	ResetStale(dbc dbctx.Context, cutoff time.Time) ([]*moderation.StaleProcessingError, error)
	Requeue(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error)
	Stats(dbc dbctx.Context) (Stats, error)
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{
		db:  db,
		log: baseLog.With("repo", "VideoRepo"),
	}
}

func (r *videoRepo) Create(dbc dbctx.Context, vids []*videos.Video) ([]*videos.Video, error) {
	transaction := dbc.DB(r.db)
	if len(vids) == 0 {
		return []*videos.Video{}, nil
	}
	for _, v := range vids {
		if v.URI == "" {
			return nil, fmt.Errorf("%w: video uri is required", pkgerrors.ErrInvalidArgument)
		}
	}
	if err := transaction.Create(&vids).Error; err != nil {
		return nil, err
	}
	return vids, nil
}

func (r *videoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*videos.Video, error) {
	transaction := dbc.DB(r.db)
	var v videos.Video
	err := transaction.Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *videoRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*videos.Video, error) {
	transaction := dbc.DB(r.db)
	var out []*videos.Video
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *videoRepo) ListByState(dbc dbctx.Context, state moderation.JobState, limit int) ([]*videos.Video, error) {
	transaction := dbc.DB(r.db)
	if !state.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", pkgerrors.ErrInvalidArgument, state)
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*videos.Video
	if err := transaction.
		Where("state = ?", string(state)).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *videoRepo) ListEvents(dbc dbctx.Context, id uuid.UUID) ([]*videos.VideoJobEvent, error) {
	transaction := dbc.DB(r.db)
	var out []*videos.VideoJobEvent
	if err := transaction.
		Where("video_id = ?", id).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TryClaim moves a pending or errored video into processing with a single conditional
// UPDATE. It reports true iff this caller changed the row.
func (r *videoRepo) TryClaim(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now().UTC()
	claimed := false
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var prev videos.Video
		if err := txx.Select("id", "state").Where("id = ?", id).Find(&prev).Error; err != nil {
			return err
		}
		res := txx.Model(&videos.Video{}).
			Where("id = ? AND state IN ?", id, claimableStates()).
			Updates(map[string]interface{}{
				"state":        string(moderation.JobProcessing),
				"state_reason": "",
				"attempts":     gorm.Expr("attempts + 1"),
				"claimed_at":   now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		claimed = true
		return txx.Create(&videos.VideoJobEvent{
			VideoID:   id,
			FromState: prev.State,
			ToState:   string(moderation.JobProcessing),
		}).Error
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// SetState records the outcome of a claimed job. Only a row in processing accepts it;
// completed requires a result, pending and error clear any stored result.
func (r *videoRepo) SetState(dbc dbctx.Context, id uuid.UUID, state moderation.JobState, result *moderation.FusedResult, reason string) error {
	return r.setState(dbc, id, 0, state, result, reason)
}

// SetStateForAttempt is SetState bound to the claim that produced attempt. A writer whose
// claim was reset by the stale sweep and taken over by another delivery gets
// ErrInvalidTransition instead of overwriting the newer attempt.
func (r *videoRepo) SetStateForAttempt(dbc dbctx.Context, id uuid.UUID, attempt int, state moderation.JobState, result *moderation.FusedResult, reason string) error {
	if attempt <= 0 {
		return fmt.Errorf("%w: attempt must be positive", pkgerrors.ErrInvalidArgument)
	}
	return r.setState(dbc, id, attempt, state, result, reason)
}

func (r *videoRepo) setState(dbc dbctx.Context, id uuid.UUID, attempt int, state moderation.JobState, result *moderation.FusedResult, reason string) error {
	if !state.Valid() {
		return fmt.Errorf("%w: unknown state %q", pkgerrors.ErrInvalidArgument, state)
	}
	if state == moderation.JobProcessing {
		return fmt.Errorf("%w: processing is entered only by claim", pkgerrors.ErrInvalidTransition)
	}
	if state == moderation.JobCompleted && result == nil {
		return fmt.Errorf("%w: completed requires a result", pkgerrors.ErrInvalidTransition)
	}
	if state != moderation.JobCompleted {
		result = nil
	}
	updates, err := videos.ResultColumns(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	now := time.Now().UTC()
	updates["state"] = string(state)
	updates["state_reason"] = reason
	updates["updated_at"] = now
	updates["claimed_at"] = nil
	if state == moderation.JobCompleted {
		updates["processed_at"] = now
	}

	return dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var prev videos.Video
		err := txx.Select("id", "state", "attempts").Where("id = ?", id).First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		q := txx.Model(&videos.Video{}).Where("id = ? AND state = ?", id, string(moderation.JobProcessing))
		if attempt > 0 {
			q = q.Where("attempts = ?", attempt)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: video %s is %s (attempt %d), cannot move to %s",
				pkgerrors.ErrInvalidTransition, id, prev.State, prev.Attempts, state)
		}
		return txx.Create(&videos.VideoJobEvent{
			VideoID:   id,
			FromState: prev.State,
			ToState:   string(state),
			Reason:    reason,
		}).Error
	})
}

// ResetStale returns videos stuck in processing since before cutoff to pending. Each reset
// row is reported as a StaleProcessingError.
func (r *videoRepo) ResetStale(dbc dbctx.Context, cutoff time.Time) ([]*moderation.StaleProcessingError, error) {
	var out []*moderation.StaleProcessingError
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var stale []*videos.Video
		if err := txx.Select("id", "claimed_at", "updated_at").
			Where("state = ?", string(moderation.JobProcessing)).
			Where("((claimed_at IS NOT NULL AND claimed_at < ?) OR (claimed_at IS NULL AND updated_at < ?))", cutoff, cutoff).
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(stale))
		for _, v := range stale {
			ids = append(ids, v.ID)
		}
		now := time.Now().UTC()
		res := txx.Model(&videos.Video{}).
			Where("id IN ? AND state = ?", ids, string(moderation.JobProcessing)).
			Updates(map[string]interface{}{
				"state":        string(moderation.JobPending),
				"state_reason": moderation.StaleResetReason,
				"claimed_at":   nil,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		events := make([]*videos.VideoJobEvent, 0, len(stale))
		for _, v := range stale {
			since := v.UpdatedAt
			if v.ClaimedAt != nil {
				since = *v.ClaimedAt
			}
			out = append(out, &moderation.StaleProcessingError{VideoID: v.ID.String(), Since: since})
			events = append(events, &videos.VideoJobEvent{
				VideoID:   v.ID,
				FromState: string(moderation.JobProcessing),
				ToState:   string(moderation.JobPending),
				Reason:    moderation.StaleResetReason,
			})
		}
		return txx.Create(&events).Error
	})
	if err != nil {
		return nil, err
	}
	for _, s := range out {
		r.log.Warn("Reset stale video", "video_id", s.VideoID, "since", s.Since)
	}
	return out, nil
}

// Requeue is the operator reprocess: a completed or errored video goes back to pending with
// its result cleared. Videos in processing are left alone.
func (r *videoRepo) Requeue(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error) {
	cleared, err := videos.ResultColumns(nil)
	if err != nil {
		return false, err
	}
	cleared["state"] = string(moderation.JobPending)
	cleared["state_reason"] = reason
	cleared["claimed_at"] = nil
	cleared["updated_at"] = time.Now().UTC()

	requeued := false
	err = dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var prev videos.Video
		err := txx.Select("id", "state").Where("id = ?", id).First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		res := txx.Model(&videos.Video{}).
			Where("id = ? AND state <> ?", id, string(moderation.JobProcessing)).
			Updates(cleared)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		requeued = true
		return txx.Create(&videos.VideoJobEvent{
			VideoID:   id,
			FromState: prev.State,
			ToState:   string(moderation.JobPending),
			Reason:    reason,
		}).Error
	})
	if err != nil {
		return false, err
	}
	return requeued, nil
}

func claimableStates() []string {
	out := []string{}
	for _, s := range moderation.AllJobStates {
		if s.Claimable() {
			out = append(out, string(s))
		}
	}
	return out
}
