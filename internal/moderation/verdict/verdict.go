package verdict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/moderation/hardrule"
)

// WeaponWords reports whether a word names a weapon.
type WeaponWords interface {
	WeaponWord(word string) bool
}

type Input struct {
	Alerts          moderation.AlertSet
	ConfidenceScore float64
	TextLevel       moderation.TextLevel
	Override        *hardrule.Override
	ProblemWords    []string
}

type Decision struct {
	VisualState moderation.Verdict
	TextState   moderation.TextState
	Verdict     moderation.Verdict
	Reason      string
	HardRule    string
}

type Classifier struct {
	lowScore float64
	weapons  WeaponWords
}

func NewClassifier(cfg moderation.ScoringConfig, weapons WeaponWords) *Classifier {
	return &Classifier{lowScore: cfg.LowScoreThreshold, weapons: weapons}
}

// Classify is pure: the same input always yields the same decision.
func (c *Classifier) Classify(in Input) Decision {
	d := Decision{TextState: TextState(in.TextLevel)}
	var reasons []string

	if in.Override != nil {
		d.VisualState = in.Override.Verdict
		d.Verdict = in.Override.Verdict
		d.HardRule = in.Override.Rule
		reasons = append(reasons, "hard rule "+in.Override.Rule)
		if d.TextState != moderation.TextStateClean {
			reasons = append(reasons, "text "+string(in.TextLevel))
		}
		d.Reason = strings.Join(reasons, "; ")
		return d
	}

	switch {
	case in.Alerts.HasAny(moderation.AlertWeaponFirearm, moderation.AlertThreat):
		d.VisualState = moderation.VerdictThreatening
	case in.Alerts.HasAny(moderation.AlertWeaponBlade, moderation.AlertViolence, moderation.AlertObsceneGesture),
		in.ConfidenceScore < c.lowScore:
		d.VisualState = moderation.VerdictRisky
	default:
		d.VisualState = moderation.VerdictSafe
	}
	if in.Alerts.Len() > 0 {
		kinds := make([]string, 0, in.Alerts.Len())
		for _, k := range in.Alerts.Sorted() {
			kinds = append(kinds, string(k))
		}
		reasons = append(reasons, "alerts "+strings.Join(kinds, ","))
	}
	if in.ConfidenceScore < c.lowScore {
		reasons = append(reasons, fmt.Sprintf("low confidence %.3f", in.ConfidenceScore))
	}

	d.Verdict = d.VisualState
	if d.TextState != moderation.TextStateClean {
		reasons = append(reasons, "text "+string(in.TextLevel))
		if d.Verdict == moderation.VerdictSafe {
			d.Verdict = moderation.VerdictRisky
		}
	}

	if w := c.weaponWords(in.ProblemWords); len(w) > 0 {
		d.Verdict = moderation.VerdictThreatening
		reasons = append(reasons, "weapon words in text "+strings.Join(w, ","))
	}
	d.Reason = strings.Join(reasons, "; ")
	return d
}

func (c *Classifier) weaponWords(words []string) []string {
	if c.weapons == nil {
		return nil
	}
	var out []string
	for _, w := range words {
		if c.weapons.WeaponWord(w) {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

func TextState(level moderation.TextLevel) moderation.TextState {
	switch level {
	case moderation.TextProblematic, moderation.TextError:
		return moderation.TextStateCritical
	case moderation.TextSuspect:
		return moderation.TextStateWarning
	default:
		return moderation.TextStateClean
	}
}
