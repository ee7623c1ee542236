package moderation

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNewScoringConfigDefaults(t *testing.T) {
	cfg := DefaultScoringConfig()
	if cfg.ConfidenceThreshold != 0.25 || cfg.MinFrames != 3 || cfg.TopK != 20 {
		t.Fatalf("unexpected object defaults: %+v", cfg)
	}
	if cfg.NeutralBase != 0.75 || cfg.AlertMultiplier != 0.7 {
		t.Fatalf("unexpected score defaults: base=%v mult=%v", cfg.NeutralBase, cfg.AlertMultiplier)
	}
	if cfg.Penalties.Firearm != 0.5 || cfg.Penalties.Threat != 0.3 {
		t.Fatalf("unexpected penalties: %+v", cfg.Penalties)
	}
}

func TestScoringConfigAdmit(t *testing.T) {
	cfg := NewScoringConfig(ScoringOptions{
		Denylist:       []string{"Person"},
		LabelOverrides: map[string]float64{"table knife": 0.6, "BAD": 2},
	})
	cases := []struct {
		label  string
		conf   float64
		frames int
		want   bool
	}{
		{"knife", 0.30, 3, true},
		{"knife", 0.20, 3, false},
		{"knife", 0.90, 2, false},
		{"person", 0.99, 10, false},
		{"table knife", 0.50, 5, false},
		{"table knife", 0.65, 5, true},
	}
	for _, tc := range cases {
		if got := cfg.Admit(tc.label, tc.conf, tc.frames); got != tc.want {
			t.Errorf("Admit(%q,%v,%d)=%v want %v", tc.label, tc.conf, tc.frames, got, tc.want)
		}
	}
	if _, ok := cfg.Overrides()["BAD"]; ok {
		t.Fatalf("out of range override should be ignored")
	}
}

func TestScoringConfigAllowlistAndCopies(t *testing.T) {
	cfg := NewScoringConfig(ScoringOptions{Allowlist: []string{"gun", " Knife "}})
	if cfg.Allowed("car") {
		t.Fatalf("car should be rejected by allowlist")
	}
	if !cfg.Allowed("KNIFE") {
		t.Fatalf("knife should be allowed")
	}
	ov := cfg.Overrides()
	ov["GUN"] = 0.99
	if cfg.ThresholdFor("gun") != cfg.ConfidenceThreshold {
		t.Fatalf("mutating the returned overrides must not change the config")
	}
}

func TestAlertSetJSONIsSorted(t *testing.T) {
	s := NewAlertSet(AlertThreat, AlertWeaponBlade, AlertKind("lewd_conduct"))
	if s.Len() != 2 {
		t.Fatalf("unknown kind should be dropped, got %v", s.Sorted())
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `["threat","weapon_blade"]` {
		t.Fatalf("unexpected json: %s", b)
	}
	var back AlertSet
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(s) {
		t.Fatalf("round trip mismatch: %v vs %v", back.Sorted(), s.Sorted())
	}
}

func TestMaxTextLevelErrorIsSticky(t *testing.T) {
	if got := MaxTextLevel(TextError, TextClean, TextProblematic); got != TextError {
		t.Fatalf("got %s", got)
	}
	if got := MaxTextLevel(); got != TextClean {
		t.Fatalf("empty max should be clean, got %s", got)
	}
}

func TestClassifyAndOutcome(t *testing.T) {
	transient := fmt.Errorf("analyze: %w", &TransientProviderError{Provider: DetectorObjectTracker, Err: errors.New("quota")})
	permanent := &PermanentProviderError{Provider: DetectorObjectTracker, Err: errors.New("bad video")}
	input := &ClientInputError{Msg: "missing uri"}

	if Classify(transient) != ClassTransient || !IsTransient(transient) {
		t.Fatalf("expected transient")
	}
	if Classify(permanent) != ClassPermanent {
		t.Fatalf("expected permanent")
	}
	if Classify(input) != ClassClientInput {
		t.Fatalf("expected client input")
	}
	if Classify(errors.New("x")) != ClassPermanent {
		t.Fatalf("unknown errors should be permanent")
	}
	if !OutcomeFromError(transient).IsRetryable() {
		t.Fatalf("transient should be retryable")
	}
	if !OutcomeFromError(input).IsFatal() {
		t.Fatalf("client input should be fatal")
	}
	if Ok(nil).IsOk() {
		t.Fatalf("ok outcome without a result must not report ok")
	}
}
