package status

import (
	"math"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
)

// Display colors understood by the admin UI.
const (
	ColorSuccess   = "success"
	ColorWarning   = "warning"
	ColorDanger    = "danger"
	ColorInfo      = "info"
	ColorSecondary = "secondary"
	ColorLight     = "light"
)

// Record is the persisted projection status derivation reads.
type Record struct {
	State           moderation.JobState
	StateReason     string
	Verdict         moderation.Verdict
	VerdictReason   string
	HardRule        string
	Explicit        moderation.ExplicitLevel
	TextLevel       moderation.TextLevel
	ConfidenceScore float64
	Alerts          moderation.AlertSet
	Objects         []moderation.Finding
}

type ModerationStatus struct {
	Text   string `json:"text"`
	Color  string `json:"color"`
	Reason string `json:"reason,omitempty"`
}

type DisplayScore struct {
	Score int    `json:"score"`
	Color string `json:"color"`
}

// FromVideo builds a Record from stored columns; the full result is decoded when present.
func FromVideo(v *videos.Video) (Record, error) {
	r := Record{
		State:       v.JobState(),
		StateReason: v.StateReason,
		Verdict:     moderation.Verdict(v.Verdict),
		Explicit:    moderation.ExplicitLevel(v.Explicit),
		TextLevel:   moderation.TextLevel(v.TextLevel),
		Alerts:      moderation.NewAlertSet(),
	}
	if v.ConfidenceScore != nil {
		r.ConfidenceScore = *v.ConfidenceScore
	}
	res, err := v.FusedResult()
	if err != nil {
		return r, err
	}
	if res != nil {
		r.VerdictReason = res.Reason
		r.HardRule = res.HardRule
		r.Objects = res.Objects
		if res.Alerts != nil {
			r.Alerts = res.Alerts
		}
	}
	return r, nil
}

func status(v moderation.Verdict, color, reason string) ModerationStatus {
	return ModerationStatus{Text: string(v), Color: color, Reason: reason}
}

// Derive is a pure function of the record. The derived status is never less severe than the
// stored verdict.
func Derive(r Record) ModerationStatus {
	switch r.State {
	case moderation.JobPending, "":
		return ModerationStatus{Text: "Pending", Color: ColorLight, Reason: r.StateReason}
	case moderation.JobProcessing:
		return ModerationStatus{Text: "Processing...", Color: ColorInfo}
	case moderation.JobError:
		return ModerationStatus{Text: "Analysis error", Color: ColorSecondary, Reason: r.StateReason}
	}

	s := deriveCompleted(r)
	if r.Verdict.Rank() > moderation.Verdict(s.Text).Rank() {
		color := ColorWarning
		if r.Verdict == moderation.VerdictThreatening {
			color = ColorDanger
		}
		return status(r.Verdict, color, r.VerdictReason)
	}
	return s
}

func deriveCompleted(r Record) ModerationStatus {
	if r.HardRule != "" {
		return status(moderation.VerdictThreatening, ColorDanger, "Hard rule: "+r.HardRule)
	}
	if hasKind(r, moderation.AlertObsceneGesture) {
		return status(moderation.VerdictRisky, ColorWarning, "Obscene gesture detected")
	}
	switch r.Explicit {
	case moderation.ExplicitPossible:
		return status(moderation.VerdictRisky, ColorWarning, "Suggestive or partially nude content")
	case moderation.ExplicitLikely:
		return status(moderation.VerdictThreatening, ColorDanger, "Sexual or explicit content")
	}
	if hasKind(r, moderation.AlertWeaponFirearm) {
		return status(moderation.VerdictThreatening, ColorDanger, "Firearm detected")
	}
	if hasKind(r, moderation.AlertThreat) {
		return status(moderation.VerdictThreatening, ColorDanger, "Threat or intimidation detected")
	}
	if hasKind(r, moderation.AlertWeaponBlade) {
		return status(moderation.VerdictRisky, ColorWarning, "Bladed weapon detected")
	}
	if hasKind(r, moderation.AlertViolence) {
		return status(moderation.VerdictRisky, ColorWarning, "Violence detected")
	}
	switch r.TextLevel {
	case moderation.TextProblematic:
		return status(moderation.VerdictRisky, ColorWarning, "Problematic text detected")
	case moderation.TextSuspect:
		return status(moderation.VerdictRisky, ColorWarning, "Suspicious text detected")
	case moderation.TextError:
		return status(moderation.VerdictRisky, ColorWarning, "Text moderation unavailable")
	}
	if r.ConfidenceScore < 0.4 {
		return status(moderation.VerdictRisky, ColorWarning, "Low model confidence")
	}
	return status(moderation.VerdictSafe, ColorSuccess, "")
}

func hasKind(r Record, kind moderation.AlertKind) bool {
	if r.Alerts.Has(kind) {
		return true
	}
	for _, f := range r.Objects {
		if k, ok := f.Kind(); ok && k == kind {
			return true
		}
	}
	return false
}

// SafetyDisplay is the 0..100 score shown in the admin list, with its color band.
func SafetyDisplay(r Record) DisplayScore {
	score := r.ConfidenceScore * 100
	switch r.Explicit {
	case moderation.ExplicitLikely:
		score -= 40
	case moderation.ExplicitPossible:
		score -= 20
	}
	switch r.TextLevel {
	case moderation.TextProblematic, moderation.TextError:
		score -= 30
	case moderation.TextSuspect:
		score -= 15
	}
	switch {
	case hasKind(r, moderation.AlertWeaponFirearm):
		score -= 50
	case hasKind(r, moderation.AlertWeaponBlade):
		score -= 30
	}
	final := int(math.Max(0, math.Round(score)))
	color := ColorSuccess
	if final < 75 {
		color = ColorWarning
	}
	if final < 50 {
		color = ColorDanger
	}
	return DisplayScore{Score: final, Color: color}
}
