package videos

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
)

type Video struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string     `gorm:"column:title" json:"title"`
	URI        string     `gorm:"column:uri;not null" json:"uri"`
	UploaderID *uuid.UUID `gorm:"type:uuid;column:uploader_id;index" json:"uploader_id,omitempty"`

	State       string     `gorm:"column:state;not null;default:'pending';index" json:"state"`
	StateReason string     `gorm:"column:state_reason" json:"state_reason,omitempty"`
	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	ClaimedAt   *time.Time `gorm:"column:claimed_at;index" json:"claimed_at,omitempty"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`

	Verdict         string         `gorm:"column:verdict;index" json:"verdict,omitempty"`
	VisualState     string         `gorm:"column:visual_state" json:"visual_state,omitempty"`
	TextState       string         `gorm:"column:text_state" json:"text_state,omitempty"`
	TextLevel       string         `gorm:"column:text_level" json:"text_level,omitempty"`
	Explicit        string         `gorm:"column:explicit" json:"explicit,omitempty"`
	ConfidenceScore *float64       `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
	SafetyScore     *int           `gorm:"column:safety_score" json:"safety_score,omitempty"`
	Alerts          datatypes.JSON `gorm:"column:alerts;type:jsonb" json:"alerts,omitempty"`
	ProblemWords    datatypes.JSON `gorm:"column:problem_words;type:jsonb" json:"problem_words,omitempty"`
	Result          datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (Video) TableName() string { return "video" }

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.State == "" {
		v.State = string(moderation.JobPending)
	}
	return nil
}

func (v *Video) JobState() moderation.JobState {
	return moderation.JobState(v.State)
}

// FusedResult decodes the persisted result; nil when the video has not completed.
func (v *Video) FusedResult() (*moderation.FusedResult, error) {
	if len(v.Result) == 0 || string(v.Result) == "null" {
		return nil, nil
	}
	var res moderation.FusedResult
	if err := json.Unmarshal(v.Result, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ResultColumns projects a fused result onto the video columns. A nil result clears them.
func ResultColumns(res *moderation.FusedResult) (map[string]interface{}, error) {
	if res == nil {
		return map[string]interface{}{
			"verdict":          "",
			"visual_state":     "",
			"text_state":       "",
			"text_level":       "",
			"explicit":         "",
			"confidence_score": nil,
			"safety_score":     nil,
			"alerts":           nil,
			"problem_words":    nil,
			"result":           nil,
			"processed_at":     nil,
		}, nil
	}
	full, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	alerts, err := json.Marshal(res.Alerts)
	if err != nil {
		return nil, err
	}
	words := res.Text.ProblemWords
	if words == nil {
		words = []string{}
	}
	problem, err := json.Marshal(words)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"verdict":          string(res.Verdict),
		"visual_state":     string(res.VisualState),
		"text_state":       string(res.TextState),
		"text_level":       string(res.Text.Level),
		"explicit":         string(res.Explicit),
		"confidence_score": res.ConfidenceScore,
		"safety_score":     res.SafetyScore,
		"alerts":           datatypes.JSON(alerts),
		"problem_words":    datatypes.JSON(problem),
		"result":           datatypes.JSON(full),
	}, nil
}
