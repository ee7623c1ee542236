package videomod

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type WorkflowOptions struct {
	MaxAttempts int32
}

func DefaultWorkflowOptions() WorkflowOptions {
	return WorkflowOptions{MaxAttempts: 10}
}

// NewWorkflow returns the moderation workflow: one activity, retried on VideoRetryable with
// exponential backoff, never retried on VideoInvalid.
func NewWorkflow(opts WorkflowOptions) func(ctx workflow.Context, videoID string) (ProcessResult, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultWorkflowOptions().MaxAttempts
	}
	return func(ctx workflow.Context, videoID string) (ProcessResult, error) {
		videoID = strings.TrimSpace(videoID)
		if videoID == "" {
			return ProcessResult{}, fmt.Errorf("videomod: missing video_id")
		}
		ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			// object tracking alone may take 10 minutes
			StartToCloseTimeout: 30 * time.Minute,
			HeartbeatTimeout:    time.Minute,
			RetryPolicy: &temporal.RetryPolicy{
				InitialInterval:        30 * time.Second,
				BackoffCoefficient:     2,
				MaximumInterval:        10 * time.Minute,
				MaximumAttempts:        opts.MaxAttempts,
				NonRetryableErrorTypes: []string{ErrTypeInvalid},
			},
		})
		var out ProcessResult
		if err := workflow.ExecuteActivity(ctx, ActivityProcess, videoID).Get(ctx, &out); err != nil {
			return out, err
		}
		return out, nil
	}
}
