package verdict

import (
	"testing"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/moderation/hardrule"
	"github.com/yungbote/videoguard-backend/internal/moderation/taxonomy"
)

func classifier() *Classifier {
	cfg := moderation.DefaultScoringConfig()
	return NewClassifier(cfg, taxonomy.NewNormalizer(cfg))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		in      Input
		visual  moderation.Verdict
		text    moderation.TextState
		verdict moderation.Verdict
	}{
		{
			name:    "clean and confident",
			in:      Input{Alerts: moderation.NewAlertSet(), ConfidenceScore: 0.75, TextLevel: moderation.TextClean},
			visual:  moderation.VerdictSafe,
			text:    moderation.TextStateClean,
			verdict: moderation.VerdictSafe,
		},
		{
			name:    "firearm",
			in:      Input{Alerts: moderation.NewAlertSet(moderation.AlertWeaponFirearm), ConfidenceScore: 0.9, TextLevel: moderation.TextClean},
			visual:  moderation.VerdictThreatening,
			text:    moderation.TextStateClean,
			verdict: moderation.VerdictThreatening,
		},
		{
			name:    "gesture is risky",
			in:      Input{Alerts: moderation.NewAlertSet(moderation.AlertObsceneGesture), ConfidenceScore: 0.9, TextLevel: moderation.TextClean},
			visual:  moderation.VerdictRisky,
			text:    moderation.TextStateClean,
			verdict: moderation.VerdictRisky,
		},
		{
			name:    "low score",
			in:      Input{Alerts: moderation.NewAlertSet(), ConfidenceScore: 0.59, TextLevel: moderation.TextClean},
			visual:  moderation.VerdictRisky,
			text:    moderation.TextStateClean,
			verdict: moderation.VerdictRisky,
		},
		{
			name:    "suspect text escalates safe",
			in:      Input{Alerts: moderation.NewAlertSet(), ConfidenceScore: 0.8, TextLevel: moderation.TextSuspect},
			visual:  moderation.VerdictSafe,
			text:    moderation.TextStateWarning,
			verdict: moderation.VerdictRisky,
		},
		{
			name:    "text error is critical",
			in:      Input{Alerts: moderation.NewAlertSet(), ConfidenceScore: 0.8, TextLevel: moderation.TextError},
			visual:  moderation.VerdictSafe,
			text:    moderation.TextStateCritical,
			verdict: moderation.VerdictRisky,
		},
		{
			name:    "text never lowers threatening",
			in:      Input{Alerts: moderation.NewAlertSet(moderation.AlertThreat), ConfidenceScore: 0.8, TextLevel: moderation.TextProblematic},
			visual:  moderation.VerdictThreatening,
			text:    moderation.TextStateCritical,
			verdict: moderation.VerdictThreatening,
		},
		{
			name:    "weapon word in text",
			in:      Input{Alerts: moderation.NewAlertSet(), ConfidenceScore: 0.8, TextLevel: moderation.TextSuspect, ProblemWords: []string{"pistola"}},
			visual:  moderation.VerdictSafe,
			text:    moderation.TextStateWarning,
			verdict: moderation.VerdictThreatening,
		},
	}
	c := classifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := c.Classify(tc.in)
			if d.VisualState != tc.visual || d.TextState != tc.text || d.Verdict != tc.verdict {
				t.Fatalf("got visual=%s text=%s verdict=%s (reason %q)", d.VisualState, d.TextState, d.Verdict, d.Reason)
			}
		})
	}
}

func TestPistolFindingIsThreatening(t *testing.T) {
	cfg := moderation.DefaultScoringConfig()
	n := taxonomy.NewNormalizer(cfg)
	f := n.NormalizeFinding(moderation.Finding{Label: "pistol", Confidence: 0.9, Source: moderation.DetectorObjectTracker})
	kind, ok := f.Kind()
	if !ok || kind != moderation.AlertWeaponFirearm {
		t.Fatalf("pistol should normalize to weapon_firearm, got %+v", f)
	}
	d := classifier().Classify(Input{Alerts: moderation.NewAlertSet(kind), ConfidenceScore: 0.315, TextLevel: moderation.TextClean})
	if d.VisualState != moderation.VerdictThreatening || d.Verdict != moderation.VerdictThreatening {
		t.Fatalf("got %+v", d)
	}
}

func TestHardRuleWinsRegardlessOfScore(t *testing.T) {
	ov := &hardrule.Override{Rule: "threat_neck_cut", Verdict: moderation.VerdictThreatening}
	d := classifier().Classify(Input{Alerts: moderation.NewAlertSet(), ConfidenceScore: 1.0, TextLevel: moderation.TextClean, Override: ov})
	if d.Verdict != moderation.VerdictThreatening || d.VisualState != moderation.VerdictThreatening || d.HardRule != "threat_neck_cut" {
		t.Fatalf("got %+v", d)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	in := Input{
		Alerts:          moderation.NewAlertSet(moderation.AlertViolence, moderation.AlertWeaponBlade),
		ConfidenceScore: 0.41,
		TextLevel:       moderation.TextSuspect,
		ProblemWords:    []string{"mierda"},
	}
	c := classifier()
	first, second := c.Classify(in), c.Classify(in)
	if first != second {
		t.Fatalf("decisions differ: %+v vs %+v", first, second)
	}
	if first.Reason == "" {
		t.Fatalf("expected a reason")
	}
}
