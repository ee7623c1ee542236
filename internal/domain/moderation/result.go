package moderation

type Verdict string

const (
	VerdictSafe        Verdict = "Safe"
	VerdictRisky       Verdict = "Risky"
	VerdictThreatening Verdict = "Threatening"
)

func (v Verdict) Rank() int {
	switch v {
	case VerdictRisky:
		return 1
	case VerdictThreatening:
		return 2
	default:
		return 0
	}
}

type ExplicitLevel string

const (
	ExplicitSafe        ExplicitLevel = "safe"
	ExplicitPossible    ExplicitLevel = "possible"
	ExplicitLikely      ExplicitLevel = "explicit"
	ExplicitNotAnalyzed ExplicitLevel = "not_analyzed"
)

type Logo struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ObjectAnalysis is the structural detector's output for one video.
type ObjectAnalysis struct {
	Findings    []Finding     `json:"findings"`
	Labels      []string      `json:"labels"`
	Logos       []Logo        `json:"logos"`
	Confidences []float64     `json:"confidences"`
	Explicit    ExplicitLevel `json:"explicit"`
	DurationSec float64       `json:"duration_sec"`
}

// NarrativeAnalysis is the generative analyzer's output for one video.
type NarrativeAnalysis struct {
	Findings     []Finding              `json:"findings"`
	Evidence     []Evidence             `json:"evidence"`
	Notes        []string               `json:"notes,omitempty"`
	DetectedText string                 `json:"detected_text,omitempty"`
	Summary      string                 `json:"summary,omitempty"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
}

type FusedResult struct {
	Objects         []Finding     `json:"objects"`
	Evidence        []Evidence    `json:"evidence"`
	Alerts          AlertSet      `json:"alerts"`
	ConfidenceScore float64       `json:"confidence_score"`
	SafetyScore     int           `json:"safety_score"`
	VisualState     Verdict       `json:"visual_state"`
	TextState       TextState     `json:"text_state"`
	Verdict         Verdict       `json:"verdict"`
	Reason          string        `json:"reason,omitempty"`
	HardRule        string        `json:"hard_rule,omitempty"`
	Labels          []string      `json:"labels"`
	Logos           []Logo        `json:"logos"`
	Explicit        ExplicitLevel `json:"explicit"`
	Text            TextAnalysis  `json:"text"`
	Summary         string        `json:"summary,omitempty"`
	Sources         []Detector    `json:"sources"`
	DurationSec     float64       `json:"duration_sec"`
}

type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobError      JobState = "error"
)

var AllJobStates = []JobState{JobPending, JobProcessing, JobCompleted, JobError}

func (s JobState) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobError:
		return true
	}
	return false
}

// Claimable reports whether a job in this state may move to processing.
func (s JobState) Claimable() bool {
	return s == JobPending || s == JobError
}
