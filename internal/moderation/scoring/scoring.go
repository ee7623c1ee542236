package scoring

import (
	"math"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
)

type Calculator struct {
	cfg moderation.ScoringConfig
}

func NewCalculator(cfg moderation.ScoringConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Score returns base x (1 - max penalty), reduced by the alert multiplier when any alert is
// present, clamped to [0,1] and rounded to 3 decimals.
func (c *Calculator) Score(confidences []float64, objects []moderation.Finding, alerts moderation.AlertSet) float64 {
	base := c.base(confidences)
	score := round3(clamp01(base * (1 - c.Penalty(objects, alerts))))
	if alerts.Len() > 0 {
		score *= c.cfg.AlertMultiplier
	}
	return round3(clamp01(score))
}

// Penalty is the largest applicable penalty; penalties never add up.
func (c *Calculator) Penalty(objects []moderation.Finding, alerts moderation.AlertSet) float64 {
	p := c.cfg.Penalties
	penalty := 0.0
	bump := func(v float64) {
		if v > penalty {
			penalty = v
		}
	}
	for _, f := range objects {
		switch {
		case f.WeaponKind == moderation.WeaponFirearm && f.Generic:
			bump(p.GenericWeapon)
		case f.WeaponKind == moderation.WeaponFirearm:
			bump(p.Firearm)
		case f.WeaponKind == moderation.WeaponBlade:
			bump(p.Blade)
		}
	}
	if alerts.HasAny(moderation.AlertWeaponFirearm, moderation.AlertWeaponBlade) {
		bump(p.WeaponAlert)
	}
	if alerts.Has(moderation.AlertViolence) {
		bump(p.Violence)
	}
	if alerts.Has(moderation.AlertThreat) {
		bump(p.Threat)
	}
	return clamp01(penalty)
}

func (c *Calculator) base(confidences []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range confidences {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += clamp01(v)
		n++
	}
	if n == 0 {
		return c.cfg.NeutralBase
	}
	return sum / float64(n)
}

// SafetyScore converts a [0,1] confidence into a 0..100 integer.
func SafetyScore(confidence float64) int {
	s := int(math.Round(clamp01(confidence) * 100))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
