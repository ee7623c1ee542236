package videomod

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
)

// Enqueue starts the moderation workflow for a video. A workflow already running for the
// video counts as success.
func Enqueue(ctx context.Context, tc temporalsdkclient.Client, taskQueue string, videoID uuid.UUID) (string, error) {
	if tc == nil {
		return "", fmt.Errorf("temporal client is not configured")
	}
	if videoID == uuid.Nil {
		return "", fmt.Errorf("videomod: video id is required")
	}
	id := WorkflowID(videoID.String())
	_, err := tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    id,
		TaskQueue:             taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, WorkflowName, videoID.String())
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("start moderation workflow: %w", err)
	}
	return id, nil
}

// Enqueuer binds Enqueue to one client and task queue.
type Enqueuer struct {
	Client    temporalsdkclient.Client
	TaskQueue string
}

func (e *Enqueuer) Enqueue(ctx context.Context, videoID uuid.UUID) error {
	_, err := Enqueue(ctx, e.Client, e.TaskQueue, videoID)
	return err
}
