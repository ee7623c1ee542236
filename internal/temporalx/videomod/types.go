package videomod

const (
	WorkflowName    = "moderate_video"
	ActivityProcess = "process_video"

	// ErrTypeRetryable marks an attempt Temporal should retry with backoff.
	ErrTypeRetryable = "VideoRetryable"
	// ErrTypeInvalid marks a delivery that can never succeed.
	ErrTypeInvalid = "VideoInvalid"
)

type ProcessResult struct {
	VideoID     string `json:"video_id"`
	Claimed     bool   `json:"claimed"`
	State       string `json:"state,omitempty"`
	Verdict     string `json:"verdict,omitempty"`
	SafetyScore int    `json:"safety_score,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// WorkflowID is one per video, so duplicate enqueues collapse onto the running execution.
func WorkflowID(videoID string) string {
	return "moderate-video-" + videoID
}
