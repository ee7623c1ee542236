package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/videoguard-backend/internal/http/response"
	"github.com/yungbote/videoguard-backend/internal/jobs"
	pkgerrors "github.com/yungbote/videoguard-backend/internal/pkg/errors"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// retryAfter is the hint given to push delivery on transient provider failures.
const retryAfter = 30 * time.Second

type VideoProcessor interface {
	Process(ctx context.Context, videoID uuid.UUID) (jobs.Result, error)
}

type TaskHandlerDeps struct {
	Log       *logger.Logger
	Processor VideoProcessor
}

type TaskHandler struct {
	log  *logger.Logger
	proc VideoProcessor
}

func NewTaskHandlerWithDeps(deps TaskHandlerDeps) *TaskHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &TaskHandler{log: log.With("handler", "TaskHandler"), proc: deps.Processor}
}

type processVideoRequest struct {
	VideoID string `json:"video_id" binding:"required"`
}

type processVideoResponse struct {
	VideoID     uuid.UUID `json:"video_id"`
	State       string    `json:"state"`
	Verdict     string    `json:"verdict,omitempty"`
	SafetyScore *int      `json:"safety_score,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// POST /tasks/process-video
//
// 204 when another delivery already owns the video, 503 when the attempt hit a transient
// provider failure and should be redelivered, 200 otherwise.
func (h *TaskHandler) ProcessVideo(c *gin.Context) {
	var req processVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(req.VideoID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_video_id", fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
		return
	}

	res, err := h.proc.Process(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Process video failed", "video_id", id, "error", err)
		response.RespondAPIError(c, err, "process_failed")
		return
	}
	if !res.Claimed {
		c.Status(http.StatusNoContent)
		return
	}

	body := processVideoResponse{VideoID: id, State: string(res.State), Reason: res.Outcome.Reason}
	if res.IsRetryable() {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		response.RespondError(c, http.StatusServiceUnavailable, "retryable", fmt.Errorf("%s", res.Outcome.Reason))
		return
	}
	if res.Outcome.IsOk() {
		body.Verdict = string(res.Outcome.Result.Verdict)
		score := res.Outcome.Result.SafetyScore
		body.SafetyScore = &score
	}
	response.RespondOK(c, body)
}
