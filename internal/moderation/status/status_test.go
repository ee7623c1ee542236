package status

import (
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
)

func completed(mut func(r *Record)) Record {
	r := Record{
		State:           moderation.JobCompleted,
		Verdict:         moderation.VerdictSafe,
		Explicit:        moderation.ExplicitSafe,
		TextLevel:       moderation.TextClean,
		ConfidenceScore: 0.75,
		Alerts:          moderation.NewAlertSet(),
	}
	if mut != nil {
		mut(&r)
	}
	return r
}

func TestDeriveOrdering(t *testing.T) {
	cases := []struct {
		name  string
		rec   Record
		text  string
		color string
	}{
		{"pending", Record{State: moderation.JobPending}, "Pending", ColorLight},
		{"processing", Record{State: moderation.JobProcessing}, "Processing...", ColorInfo},
		{"error", Record{State: moderation.JobError, StateReason: "video_intelligence: boom"}, "Analysis error", ColorSecondary},
		{"safe", completed(nil), "Safe", ColorSuccess},
		{"gesture before explicit", completed(func(r *Record) {
			r.Alerts = moderation.NewAlertSet(moderation.AlertObsceneGesture)
			r.Explicit = moderation.ExplicitLikely
			r.Verdict = moderation.VerdictRisky
		}), "Risky", ColorWarning},
		{"explicit likely", completed(func(r *Record) { r.Explicit = moderation.ExplicitLikely }), "Threatening", ColorDanger},
		{"explicit possible", completed(func(r *Record) { r.Explicit = moderation.ExplicitPossible }), "Risky", ColorWarning},
		{"firearm object", completed(func(r *Record) {
			r.Objects = []moderation.Finding{{CanonicalLabel: string(moderation.AlertWeaponFirearm)}}
		}), "Threatening", ColorDanger},
		{"blade", completed(func(r *Record) { r.Alerts = moderation.NewAlertSet(moderation.AlertWeaponBlade) }), "Risky", ColorWarning},
		{"suspect text", completed(func(r *Record) { r.TextLevel = moderation.TextSuspect }), "Risky", ColorWarning},
		{"low score", completed(func(r *Record) { r.ConfidenceScore = 0.39 }), "Risky", ColorWarning},
		{"stored verdict floor", completed(func(r *Record) {
			r.Verdict = moderation.VerdictThreatening
			r.VerdictReason = "weapon words in text pistola"
			r.TextLevel = moderation.TextSuspect
		}), "Threatening", ColorDanger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.rec)
			if got.Text != tc.text || got.Color != tc.color {
				t.Fatalf("got %+v want %s/%s", got, tc.text, tc.color)
			}
		})
	}
	if got := Derive(Record{State: moderation.JobError, StateReason: "x"}); got.Reason != "x" {
		t.Fatalf("error status should carry the reason, got %+v", got)
	}
}

func TestDeriveIsPure(t *testing.T) {
	r := completed(func(r *Record) { r.Alerts = moderation.NewAlertSet(moderation.AlertViolence) })
	if Derive(r) != Derive(r) {
		t.Fatalf("derive not deterministic")
	}
}

func TestSafetyDisplay(t *testing.T) {
	cases := []struct {
		rec   Record
		score int
		color string
	}{
		{completed(nil), 75, ColorSuccess},
		{completed(func(r *Record) { r.TextLevel = moderation.TextSuspect }), 60, ColorWarning},
		{completed(func(r *Record) {
			r.Alerts = moderation.NewAlertSet(moderation.AlertWeaponFirearm, moderation.AlertWeaponBlade)
			r.ConfidenceScore = 0.35
		}), 0, ColorDanger},
		{completed(func(r *Record) {
			r.Explicit = moderation.ExplicitPossible
			r.ConfidenceScore = 0.9
		}), 70, ColorWarning},
	}
	for i, tc := range cases {
		got := SafetyDisplay(tc.rec)
		if got.Score != tc.score || got.Color != tc.color {
			t.Errorf("case %d: got %+v want %d/%s", i, got, tc.score, tc.color)
		}
	}
}

func TestFromVideo(t *testing.T) {
	res := &moderation.FusedResult{
		Alerts:          moderation.NewAlertSet(moderation.AlertThreat),
		ConfidenceScore: 0.2,
		Verdict:         moderation.VerdictThreatening,
		HardRule:        "threat_neck_cut",
		Explicit:        moderation.ExplicitSafe,
		Text:            moderation.TextAnalysis{Level: moderation.TextClean},
	}
	cols, err := videos.ResultColumns(res)
	if err != nil {
		t.Fatalf("ResultColumns: %v", err)
	}
	score := 0.2
	v := &videos.Video{
		State:           string(moderation.JobCompleted),
		Verdict:         cols["verdict"].(string),
		Explicit:        cols["explicit"].(string),
		TextLevel:       cols["text_level"].(string),
		ConfidenceScore: &score,
		Result:          cols["result"].(datatypes.JSON),
	}
	rec, err := FromVideo(v)
	if err != nil {
		t.Fatalf("FromVideo: %v", err)
	}
	got := Derive(rec)
	if got.Text != "Threatening" || got.Reason != "Hard rule: threat_neck_cut" {
		t.Fatalf("got %+v", got)
	}
}
