package moderation

// Detector identifies the adapter that produced a Finding or Evidence.
type Detector string

const (
	DetectorObjectTracker Detector = "video_intelligence"
	DetectorNarrative     Detector = "gemini"
	DetectorText          Detector = "text_moderation"
	// DetectorFusionRule marks findings synthesized by fusion lexicon rules.
	DetectorFusionRule Detector = "fusion_rule"
)

type WeaponKind string

const (
	WeaponNone    WeaponKind = "none"
	WeaponBlade   WeaponKind = "blade"
	WeaponFirearm WeaponKind = "firearm"
)

// Unclassified is the canonical label of vocabulary outside the taxonomy.
const Unclassified = "unclassified"

// Interval is a [Start, End] span in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Overlaps reports whether the two spans intersect once widened by tol on each side.
func (i Interval) Overlaps(o Interval, tol float64) bool {
	return i.Start <= o.End+tol && o.Start <= i.End+tol
}

func (i Interval) Duration() float64 {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

type Finding struct {
	Label          string     `json:"label"`
	CanonicalLabel string     `json:"canonical_label"`
	Confidence     float64    `json:"confidence"`
	IsWeapon       bool       `json:"is_weapon"`
	WeaponKind     WeaponKind `json:"weapon_kind"`
	// Generic is set for the tracker's bare "weapon" label.
	Generic     bool       `json:"generic,omitempty"`
	Source      Detector   `json:"source"`
	Interval    *Interval  `json:"interval,omitempty"`
	FrameCount  int        `json:"frame_count,omitempty"`
	DurationSec float64    `json:"duration_sec,omitempty"`
	Intervals   []Interval `json:"intervals,omitempty"`
	Note        string     `json:"note,omitempty"`
	Synthesized bool       `json:"synthesized,omitempty"`
}

// Kind returns the alert kind the finding backs, if any.
func (f Finding) Kind() (AlertKind, bool) {
	k := AlertKind(f.CanonicalLabel)
	return k, k.Valid()
}

type Evidence struct {
	Kind        AlertKind `json:"kind"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	Source      Detector  `json:"source"`
	Interval    *Interval `json:"interval,omitempty"`
}

// DetectorOutput is everything one adapter contributed to a job.
type DetectorOutput struct {
	Source   Detector
	Findings []Finding
	Evidence []Evidence
	// Notes carries free-text object notes (narrative analyzer) scanned by fusion lexicon rules.
	Notes []string
}

// Partial is the fusion result before scoring and classification.
type Partial struct {
	Objects  []Finding  `json:"objects"`
	Evidence []Evidence `json:"evidence"`
	Alerts   AlertSet   `json:"alerts"`
}
