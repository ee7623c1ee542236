package moderation

import (
	"sort"
	"strings"
)

// Penalties are the per-signal score penalties; the calculator applies the largest one.
type Penalties struct {
	Firearm       float64
	Blade         float64
	GenericWeapon float64
	WeaponAlert   float64
	Violence      float64
	Threat        float64
}

// ScoringOptions is the raw input to NewScoringConfig. Non-positive values fall back to defaults.
type ScoringOptions struct {
	ConfidenceThreshold   float64
	MinFrames             int
	TopK                  int
	Allowlist             []string
	Denylist              []string
	LabelOverrides        map[string]float64
	FrameWindowSec        float64
	DedupeWindowSec       float64
	LabelThreshold        float64
	LogoThreshold         float64
	NeutralBase           float64
	Penalties             Penalties
	AlertMultiplier       float64
	LowScoreThreshold     float64
	HardRuleMinConfidence float64
	TextSuspect           float64
	TextProblematic       float64
	OCRMaxFrames          int
}

// ScoringConfig is built once at startup and shared by value. Its sets are unexported so
// holders cannot mutate them.
type ScoringConfig struct {
	ConfidenceThreshold   float64
	MinFrames             int
	TopK                  int
	FrameWindowSec        float64
	DedupeWindowSec       float64
	LabelThreshold        float64
	LogoThreshold         float64
	NeutralBase           float64
	Penalties             Penalties
	AlertMultiplier       float64
	LowScoreThreshold     float64
	HardRuleMinConfidence float64
	TextSuspect           float64
	TextProblematic       float64
	OCRMaxFrames          int

	allow     map[string]struct{}
	deny      map[string]struct{}
	overrides map[string]float64
}

var defaultPenalties = Penalties{
	Firearm:       0.50,
	Blade:         0.30,
	GenericWeapon: 0.25,
	WeaponAlert:   0.40,
	Violence:      0.35,
	Threat:        0.30,
}

func DefaultScoringConfig() ScoringConfig {
	return NewScoringConfig(ScoringOptions{})
}

func NewScoringConfig(o ScoringOptions) ScoringConfig {
	cfg := ScoringConfig{
		ConfidenceThreshold:   orFloat(o.ConfidenceThreshold, 0.25),
		MinFrames:             orInt(o.MinFrames, 3),
		TopK:                  orInt(o.TopK, 20),
		FrameWindowSec:        orFloat(o.FrameWindowSec, 0.20),
		DedupeWindowSec:       orFloat(o.DedupeWindowSec, 0.20),
		LabelThreshold:        orFloat(o.LabelThreshold, 0.40),
		LogoThreshold:         orFloat(o.LogoThreshold, 0.15),
		NeutralBase:           orFloat(o.NeutralBase, 0.75),
		AlertMultiplier:       orFloat(o.AlertMultiplier, 0.70),
		LowScoreThreshold:     orFloat(o.LowScoreThreshold, 0.60),
		HardRuleMinConfidence: orFloat(o.HardRuleMinConfidence, 0.35),
		TextSuspect:           orFloat(o.TextSuspect, 0.30),
		TextProblematic:       orFloat(o.TextProblematic, 0.60),
		OCRMaxFrames:          orInt(o.OCRMaxFrames, 10),
		Penalties: Penalties{
			Firearm:       orFloat(o.Penalties.Firearm, defaultPenalties.Firearm),
			Blade:         orFloat(o.Penalties.Blade, defaultPenalties.Blade),
			GenericWeapon: orFloat(o.Penalties.GenericWeapon, defaultPenalties.GenericWeapon),
			WeaponAlert:   orFloat(o.Penalties.WeaponAlert, defaultPenalties.WeaponAlert),
			Violence:      orFloat(o.Penalties.Violence, defaultPenalties.Violence),
			Threat:        orFloat(o.Penalties.Threat, defaultPenalties.Threat),
		},
		allow:     toSet(o.Allowlist),
		deny:      toSet(o.Denylist),
		overrides: map[string]float64{},
	}
	for k, v := range o.LabelOverrides {
		key := OverrideKey(k)
		if key == "" || v < 0 || v > 1 {
			continue
		}
		cfg.overrides[key] = v
	}
	return cfg
}

// OverrideKey is the env-style key for a label: "table knife" -> "TABLE_KNIFE".
func OverrideKey(label string) string {
	label = strings.TrimSpace(label)
	label = strings.ReplaceAll(label, " ", "_")
	return strings.ToUpper(label)
}

func (c ScoringConfig) ThresholdFor(label string) float64 {
	if v, ok := c.overrides[OverrideKey(label)]; ok {
		return v
	}
	return c.ConfidenceThreshold
}

// Allowed applies the allow and deny lists to a lower-cased label.
func (c ScoringConfig) Allowed(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	if len(c.allow) > 0 {
		if _, ok := c.allow[label]; !ok {
			return false
		}
	}
	_, denied := c.deny[label]
	return !denied
}

// Admit decides whether a tracked object survives filtering.
func (c ScoringConfig) Admit(label string, confidence float64, frames int) bool {
	if !c.Allowed(label) {
		return false
	}
	if confidence < c.ThresholdFor(label) {
		return false
	}
	return frames >= c.MinFrames
}

func (c ScoringConfig) Allowlist() []string { return sortedKeys(c.allow) }
func (c ScoringConfig) Denylist() []string  { return sortedKeys(c.deny) }

func (c ScoringConfig) Overrides() map[string]float64 {
	out := make(map[string]float64, len(c.overrides))
	for k, v := range c.overrides {
		out[k] = v
	}
	return out
}

func orFloat(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func toSet(items []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, s := range items {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
