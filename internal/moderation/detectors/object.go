package detectors

import (
	"context"
	"math"
	"sort"
	"strings"

	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/videoguard-backend/internal/clients/gcp"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

const (
	maxLabels         = 20
	maxIntervals      = 10
	intervalGapSec    = 0.5
	logoConfidenceKey = "logo_confidence"
)

type objectDetector struct {
	log *logger.Logger
	vi  gcp.VideoIntelligence
	cfg moderation.ScoringConfig
}

func NewObjectDetector(log *logger.Logger, vi gcp.VideoIntelligence, cfg moderation.ScoringConfig) ObjectDetector {
	return &objectDetector{log: log.With("service", "ObjectDetector"), vi: vi, cfg: cfg}
}

func (d *objectDetector) Analyze(ctx context.Context, uri string) (moderation.ObjectAnalysis, error) {
	res, err := d.vi.Annotate(ctx, uri)
	if err != nil {
		return moderation.ObjectAnalysis{}, err
	}
	out := ParseAnnotation(res, d.cfg)
	d.log.Info("Objects processed",
		"uri", uri,
		"raw_objects", len(res.GetObjectAnnotations()),
		"kept", len(out.Findings),
		"explicit", out.Explicit,
	)
	return out, nil
}

// ParseAnnotation turns one video's annotation results into findings and display metadata.
func ParseAnnotation(res *vipb.VideoAnnotationResults, cfg moderation.ScoringConfig) moderation.ObjectAnalysis {
	return moderation.ObjectAnalysis{
		Findings:    parseObjects(res.GetObjectAnnotations(), cfg),
		Labels:      parseLabels(res, cfg.LabelThreshold),
		Logos:       parseLogos(res.GetLogoRecognitionAnnotations(), cfg.LogoThreshold),
		Confidences: baseConfidences(res),
		Explicit:    parseExplicit(res.GetExplicitAnnotation()),
		DurationSec: videoDuration(res),
	}
}

func parseObjects(objs []*vipb.ObjectTrackingAnnotation, cfg moderation.ScoringConfig) []moderation.Finding {
	out := []moderation.Finding{}
	half := cfg.FrameWindowSec / 2
	for _, obj := range objs {
		if obj == nil || obj.GetEntity() == nil {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(obj.GetEntity().GetDescription()))
		if label == "" {
			continue
		}
		conf := float64(obj.GetConfidence())
		frames := obj.GetFrames()
		if !cfg.Admit(label, conf, len(frames)) {
			continue
		}

		raw := make([]moderation.Interval, 0, len(frames))
		for _, f := range frames {
			if f.GetTimeOffset() == nil {
				continue
			}
			t := durToSec(f.GetTimeOffset())
			raw = append(raw, moderation.Interval{Start: math.Max(0, t-half), End: t + half})
		}
		intervals := compactIntervals(raw, intervalGapSec)
		total := 0.0
		for _, iv := range intervals {
			total += iv.Duration()
		}
		if len(intervals) > maxIntervals {
			intervals = intervals[:maxIntervals]
		}
		for i := range intervals {
			intervals[i] = moderation.Interval{Start: round2(intervals[i].Start), End: round2(intervals[i].End)}
		}

		f := moderation.Finding{
			Label:       label,
			Confidence:  round2(conf),
			Source:      moderation.DetectorObjectTracker,
			FrameCount:  len(frames),
			DurationSec: round2(total),
			Intervals:   intervals,
		}
		if seg := obj.GetSegment(); seg != nil {
			f.Interval = &moderation.Interval{
				Start: durToSec(seg.GetStartTimeOffset()),
				End:   durToSec(seg.GetEndTimeOffset()),
			}
		}
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DurationSec != out[j].DurationSec {
			return out[i].DurationSec > out[j].DurationSec
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Label < out[j].Label
	})
	if cfg.TopK > 0 && len(out) > cfg.TopK {
		out = out[:cfg.TopK]
	}
	return out
}

// compactIntervals merges spans whose gap is at most gap seconds.
func compactIntervals(in []moderation.Interval, gap float64) []moderation.Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := append([]moderation.Interval(nil), in...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	out := []moderation.Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start-last.End <= gap {
			last.End = math.Max(last.End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}

func parseLabels(res *vipb.VideoAnnotationResults, threshold float64) []string {
	seen := map[string]struct{}{}
	add := func(ann *vipb.LabelAnnotation, conf float32) {
		if float64(conf) < threshold {
			return
		}
		if l := strings.ToLower(strings.TrimSpace(ann.GetEntity().GetDescription())); l != "" {
			seen[l] = struct{}{}
		}
	}
	for _, ann := range res.GetSegmentLabelAnnotations() {
		for _, seg := range ann.GetSegments() {
			add(ann, seg.GetConfidence())
		}
	}
	for _, ann := range res.GetFrameLabelAnnotations() {
		for _, fr := range ann.GetFrames() {
			add(ann, fr.GetConfidence())
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	if len(out) > maxLabels {
		out = out[:maxLabels]
	}
	return out
}

// parseLogos keeps the best track confidence per logo.
func parseLogos(anns []*vipb.LogoRecognitionAnnotation, threshold float64) []moderation.Logo {
	best := map[string]float64{}
	for _, ann := range anns {
		name := strings.TrimSpace(ann.GetEntity().GetDescription())
		if name == "" {
			continue
		}
		for _, tr := range ann.GetTracks() {
			c := float64(tr.GetConfidence())
			if c < threshold {
				continue
			}
			if prev, ok := best[name]; !ok || c > prev {
				best[name] = c
			}
		}
	}
	out := make([]moderation.Logo, 0, len(best))
	for name, c := range best {
		out = append(out, moderation.Logo{Name: name, Confidence: round2(c)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// baseConfidences feeds the safety score base: segment and frame label confidences plus
// per-object logo confidence attributes.
func baseConfidences(res *vipb.VideoAnnotationResults) []float64 {
	out := []float64{}
	for _, ann := range res.GetSegmentLabelAnnotations() {
		for _, seg := range ann.GetSegments() {
			out = append(out, float64(seg.GetConfidence()))
		}
	}
	for _, ann := range res.GetFrameLabelAnnotations() {
		for _, fr := range ann.GetFrames() {
			out = append(out, float64(fr.GetConfidence()))
		}
	}
	for _, ann := range res.GetLogoRecognitionAnnotations() {
		for _, tr := range ann.GetTracks() {
			for _, obj := range tr.GetTimestampedObjects() {
				for _, attr := range obj.GetAttributes() {
					if attr.GetName() == logoConfidenceKey {
						out = append(out, float64(attr.GetConfidence()))
					}
				}
			}
		}
	}
	return out
}

// parseExplicit uses the worst frame: LIKELY or above is explicit, POSSIBLE is possible.
func parseExplicit(ann *vipb.ExplicitContentAnnotation) moderation.ExplicitLevel {
	if ann == nil {
		return moderation.ExplicitNotAnalyzed
	}
	worst := vipb.Likelihood_VERY_UNLIKELY
	for _, fr := range ann.GetFrames() {
		if l := fr.GetPornographyLikelihood(); l > worst {
			worst = l
		}
	}
	switch {
	case worst >= vipb.Likelihood_LIKELY:
		return moderation.ExplicitLikely
	case worst == vipb.Likelihood_POSSIBLE:
		return moderation.ExplicitPossible
	default:
		return moderation.ExplicitSafe
	}
}

func videoDuration(res *vipb.VideoAnnotationResults) float64 {
	if seg := res.GetSegment(); seg != nil {
		if d := durToSec(seg.GetEndTimeOffset()); d > 0 {
			return round2(d)
		}
	}
	end := 0.0
	for _, shot := range res.GetShotAnnotations() {
		end = math.Max(end, durToSec(shot.GetEndTimeOffset()))
	}
	return round2(end)
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
