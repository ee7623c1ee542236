package hardrule

import (
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/moderation/taxonomy"
)

// Override is a verdict forced by a rule, bypassing score-based classification.
type Override struct {
	Rule     string               `json:"rule"`
	Verdict  moderation.Verdict   `json:"verdict"`
	Evidence *moderation.Evidence `json:"evidence,omitempty"`
}

// Rule matches a single evidence item.
type Rule struct {
	ID      string
	Verdict moderation.Verdict
	Match   func(ev moderation.Evidence) bool
}

type Checker struct {
	rules []Rule
}

// NeckCutRule fires on threat evidence describing a throat or neck cut with confidence >= minConf.
func NeckCutRule(minConf float64) Rule {
	return Rule{
		ID:      "threat_neck_cut",
		Verdict: moderation.VerdictThreatening,
		Match: func(ev moderation.Evidence) bool {
			return ev.Kind == moderation.AlertThreat &&
				ev.Confidence >= minConf &&
				taxonomy.MentionsNeckCut(ev.Description)
		},
	}
}

func NewChecker(cfg moderation.ScoringConfig, extra ...Rule) *Checker {
	rules := []Rule{NeckCutRule(cfg.HardRuleMinConfidence)}
	rules = append(rules, extra...)
	return &Checker{rules: rules}
}

// Check evaluates rules in order and returns the first match, or nil.
func (c *Checker) Check(evidence []moderation.Evidence) *Override {
	for _, r := range c.rules {
		for i := range evidence {
			if r.Match(evidence[i]) {
				ev := evidence[i]
				return &Override{Rule: r.ID, Verdict: r.Verdict, Evidence: &ev}
			}
		}
	}
	return nil
}
