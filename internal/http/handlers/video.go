package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/http/middleware"
	"github.com/yungbote/videoguard-backend/internal/http/response"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
	"github.com/yungbote/videoguard-backend/internal/services"
)

type StaleSweeper interface {
	SweepOnce(ctx context.Context) ([]*moderation.StaleProcessingError, error)
}

type VideoHandlerDeps struct {
	Log     *logger.Logger
	Videos  services.VideoService
	Sweeper StaleSweeper
}

type VideoHandler struct {
	log     *logger.Logger
	videos  services.VideoService
	sweeper StaleSweeper
}

func NewVideoHandlerWithDeps(deps VideoHandlerDeps) *VideoHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &VideoHandler{
		log:     log.With("handler", "VideoHandler"),
		videos:  deps.Videos,
		sweeper: deps.Sweeper,
	}
}

// POST /admin/videos
func (h *VideoHandler) Submit(c *gin.Context) {
	var in services.SubmitVideoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.videos.Submit(dbctx.Context{Ctx: c.Request.Context()}, in)
	if err != nil {
		response.RespondAPIError(c, err, "submit_failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"video": v})
}

// GET /admin/videos?state=pending&limit=50
func (h *VideoHandler) List(c *gin.Context) {
	state := moderation.JobState(strings.TrimSpace(c.DefaultQuery("state", string(moderation.JobPending))))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a positive integer"))
		return
	}
	vids, err := h.videos.List(dbctx.Context{Ctx: c.Request.Context()}, state, limit)
	if err != nil {
		response.RespondAPIError(c, err, "list_failed")
		return
	}
	response.RespondOK(c, gin.H{"videos": vids, "state": state})
}

// GET /admin/videos/status?ids=a,b,c
func (h *VideoHandler) Status(c *gin.Context) {
	ids, err := parseIDs(c.QueryArray("ids"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_ids", err)
		return
	}
	rows, missing, err := h.videos.Statuses(dbctx.Context{Ctx: c.Request.Context()}, ids)
	if err != nil {
		response.RespondAPIError(c, err, "status_failed")
		return
	}
	response.RespondOK(c, gin.H{"videos": rows, "missing": missing})
}

// GET /admin/videos/:id
func (h *VideoHandler) Get(c *gin.Context) {
	id, ok := videoIDParam(c)
	if !ok {
		return
	}
	v, err := h.videos.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err, "get_failed")
		return
	}
	res, err := v.FusedResult()
	if err != nil {
		h.log.Warn("Stored moderation result unreadable", "video_id", id, "error", err)
	}
	response.RespondOK(c, gin.H{"video": v, "result": res})
}

// GET /admin/videos/:id/events
func (h *VideoHandler) Events(c *gin.Context) {
	id, ok := videoIDParam(c)
	if !ok {
		return
	}
	events, err := h.videos.Events(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err, "events_failed")
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

type reprocessRequest struct {
	Reason string `json:"reason"`
}

// POST /admin/videos/:id/reprocess
func (h *VideoHandler) Reprocess(c *gin.Context) {
	id, ok := videoIDParam(c)
	if !ok {
		return
	}
	var req reprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = services.ReprocessReason
	}
	if sub := middleware.AdminSubject(c); sub != "" {
		reason = reason + " by " + sub
	}
	requeued, err := h.videos.Reprocess(dbctx.Context{Ctx: c.Request.Context()}, id, reason)
	if err != nil {
		response.RespondAPIError(c, err, "reprocess_failed")
		return
	}
	if !requeued {
		response.RespondError(c, http.StatusConflict, "video_processing", fmt.Errorf("video %s is processing", id))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"video_id": id, "state": moderation.JobPending})
}

// GET /admin/stats
func (h *VideoHandler) Stats(c *gin.Context) {
	stats, err := h.videos.Stats(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondAPIError(c, err, "stats_failed")
		return
	}
	response.RespondOK(c, stats)
}

// POST /admin/sweep
func (h *VideoHandler) Sweep(c *gin.Context) {
	if h.sweeper == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "sweep_disabled", fmt.Errorf("sweeper is not configured"))
		return
	}
	reset, err := h.sweeper.SweepOnce(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "sweep_failed")
		return
	}
	ids := make([]string, 0, len(reset))
	for _, r := range reset {
		ids = append(ids, r.VideoID)
	}
	response.RespondOK(c, gin.H{"reset": len(ids), "video_ids": ids})
}

func videoIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// parseIDs accepts both ?ids=a,b and repeated ?ids=a&ids=b.
func parseIDs(raw []string) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	for _, chunk := range raw {
		for _, s := range strings.Split(chunk, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a video id", pkgerrors.ErrInvalidArgument, s)
			}
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ids is required", pkgerrors.ErrInvalidArgument)
	}
	return out, nil
}
