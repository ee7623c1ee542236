package videos

import (
	"time"

	"github.com/google/uuid"
)

// StatusEvent announces a job state change to subscribers outside the process.
type StatusEvent struct {
	VideoID     uuid.UUID `json:"video_id"`
	FromState   string    `json:"from_state,omitempty"`
	State       string    `json:"state"`
	Verdict     string    `json:"verdict,omitempty"`
	SafetyScore *int      `json:"safety_score,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}
