package fusion

import (
	"sort"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/moderation/taxonomy"
)

const (
	defaultGestureConfidence = 0.35
	defaultSynthConfidence   = 0.90
)

// Engine merges adapter outputs into one alert set backed by findings and evidence. It is
// stateless and safe for concurrent use.
type Engine struct {
	norm   *taxonomy.Normalizer
	window float64
}

func NewEngine(norm *taxonomy.Normalizer) *Engine {
	return &Engine{norm: norm, window: norm.Config().DedupeWindowSec}
}

func (e *Engine) Fuse(outputs []moderation.DetectorOutput) moderation.Partial {
	var (
		findings []moderation.Finding
		evidence []moderation.Evidence
		notes    []string
	)
	for _, out := range outputs {
		for _, f := range out.Findings {
			if f.Source == "" {
				f.Source = out.Source
			}
			f = e.norm.NormalizeFinding(f)
			findings = append(findings, f)
			if f.Note != "" {
				notes = append(notes, f.Note)
			}
		}
		for _, ev := range out.Evidence {
			if ev.Source == "" {
				ev.Source = out.Source
			}
			if n, ok := e.norm.NormalizeEvidence(ev); ok {
				evidence = append(evidence, n)
			}
		}
		notes = append(notes, out.Notes...)
	}

	alerts := moderation.NewAlertSet()
	for _, f := range findings {
		if k, ok := f.Kind(); ok {
			alerts.Add(k)
		}
	}
	for _, ev := range evidence {
		alerts.Add(ev.Kind)
	}
	tableKnife := tableKnifeRule(evidence, notes)
	if tableKnife {
		alerts.Add(moderation.AlertWeaponBlade)
	}

	objects := e.dedupe(findings)
	objects = append(objects, e.synthesize(alerts, objects, evidence, tableKnife)...)
	sortFindings(objects)
	sortEvidence(evidence)

	if objects == nil {
		objects = []moderation.Finding{}
	}
	if evidence == nil {
		evidence = []moderation.Evidence{}
	}
	return moderation.Partial{Objects: objects, Evidence: evidence, Alerts: alerts}
}

// tableKnifeRule fires when narrative evidence exists and either an object note mentions a
// knife or an evidence description mentions a knife or a neck cut.
func tableKnifeRule(evidence []moderation.Evidence, notes []string) bool {
	if len(evidence) == 0 {
		return false
	}
	for _, n := range notes {
		if taxonomy.MentionsKnife(n) {
			return true
		}
	}
	for _, ev := range evidence {
		if taxonomy.MentionsKnife(ev.Description) || taxonomy.MentionsNeckCut(ev.Description) {
			return true
		}
	}
	return false
}

// synthesize adds one representative finding for every alert kind no finding backs.
func (e *Engine) synthesize(alerts moderation.AlertSet, objects []moderation.Finding, evidence []moderation.Evidence, tableKnife bool) []moderation.Finding {
	backed := moderation.NewAlertSet()
	for _, f := range objects {
		if k, ok := f.Kind(); ok {
			backed.Add(k)
		}
	}
	var out []moderation.Finding
	for _, kind := range alerts.Sorted() {
		if backed.Has(kind) {
			continue
		}
		best, found := strongestEvidence(evidence, kind)
		f := moderation.Finding{
			Label:       string(kind),
			Source:      moderation.DetectorFusionRule,
			Synthesized: true,
		}
		switch {
		case found:
			f.Source = best.Source
			f.Confidence = best.Confidence
			f.Interval = best.Interval
			f.Note = best.Description
		case kind == moderation.AlertWeaponBlade && tableKnife:
			f.Confidence = defaultSynthConfidence
		}
		if f.Confidence <= 0 {
			f.Confidence = defaultSynthConfidence
			if kind == moderation.AlertObsceneGesture {
				f.Confidence = defaultGestureConfidence
			}
		}
		out = append(out, e.norm.NormalizeFinding(f))
	}
	return out
}

func strongestEvidence(evidence []moderation.Evidence, kind moderation.AlertKind) (moderation.Evidence, bool) {
	var (
		best  moderation.Evidence
		found bool
	)
	for _, ev := range evidence {
		if ev.Kind != kind {
			continue
		}
		if !found || evidenceLess(ev, best) {
			best, found = ev, true
		}
	}
	return best, found
}

func sortFindings(fs []moderation.Finding) {
	sort.SliceStable(fs, func(i, j int) bool { return findingLess(fs[i], fs[j]) })
}

func sortEvidence(es []moderation.Evidence) {
	sort.SliceStable(es, func(i, j int) bool { return evidenceLess(es[i], es[j]) })
}

// findingLess is a total order: canonical label, source, start, confidence desc, then the rest.
func findingLess(a, b moderation.Finding) bool {
	if a.CanonicalLabel != b.CanonicalLabel {
		return a.CanonicalLabel < b.CanonicalLabel
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	as, ae := span(a)
	bs, be := span(b)
	if as != bs {
		return as < bs
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.FrameCount != b.FrameCount {
		return a.FrameCount > b.FrameCount
	}
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	if ae != be {
		return ae < be
	}
	return a.Note < b.Note
}

// evidenceLess orders by kind, confidence desc, source, description.
func evidenceLess(a, b moderation.Evidence) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.Description < b.Description
}

// span returns the interval bounds; findings without one sort first.
func span(f moderation.Finding) (float64, float64) {
	if f.Interval == nil {
		return -1, -1
	}
	return f.Interval.Start, f.Interval.End
}
