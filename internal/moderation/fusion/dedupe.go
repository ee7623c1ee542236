package fusion

import (
	"sort"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/moderation/taxonomy"
)

type groupKey struct {
	label  string
	source moderation.Detector
}

// dedupe merges findings sharing (canonical label, source) whose intervals overlap within the
// window, keeping the strongest one. Unclassified findings group by their raw label.
func (e *Engine) dedupe(findings []moderation.Finding) []moderation.Finding {
	groups := map[groupKey][]moderation.Finding{}
	var keys []groupKey
	for _, f := range findings {
		k := groupKey{label: f.CanonicalLabel, source: f.Source}
		if f.CanonicalLabel == moderation.Unclassified {
			k.label = moderation.Unclassified + ":" + taxonomy.Key(f.Label)
		}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], f)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].label != keys[j].label {
			return keys[i].label < keys[j].label
		}
		return keys[i].source < keys[j].source
	})

	out := []moderation.Finding{}
	for _, k := range keys {
		out = append(out, e.mergeGroup(groups[k])...)
	}
	return out
}

func (e *Engine) mergeGroup(group []moderation.Finding) []moderation.Finding {
	sortFindings(group)
	var (
		out      []moderation.Finding
		untimed  *moderation.Finding
		current  *moderation.Finding
		spanHigh float64
	)
	flush := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}
	for i := range group {
		f := group[i]
		// Untimed findings in one group collapse to a single strongest entry.
		if f.Interval == nil {
			if untimed == nil || stronger(f, *untimed) {
				cp := f
				untimed = &cp
			}
			continue
		}
		if current != nil && f.Interval.Start <= spanHigh+e.window {
			if f.Interval.End > spanHigh {
				spanHigh = f.Interval.End
			}
			if stronger(f, *current) {
				cp := f
				current = &cp
			}
			continue
		}
		flush()
		cp := f
		current = &cp
		spanHigh = f.Interval.End
	}
	flush()
	if untimed != nil {
		out = append([]moderation.Finding{*untimed}, out...)
	}
	return out
}

// stronger ranks by confidence, then frame count, then the lexicographically smaller raw label.
func stronger(a, b moderation.Finding) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.FrameCount != b.FrameCount {
		return a.FrameCount > b.FrameCount
	}
	return a.Label < b.Label
}
