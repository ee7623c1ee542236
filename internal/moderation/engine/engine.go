// Package engine runs the detector adapters for one video and turns their outputs into a
// moderation verdict.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/moderation/detectors"
	"github.com/yungbote/videoguard-backend/internal/moderation/fusion"
	"github.com/yungbote/videoguard-backend/internal/moderation/hardrule"
	"github.com/yungbote/videoguard-backend/internal/moderation/scoring"
	"github.com/yungbote/videoguard-backend/internal/moderation/taxonomy"
	"github.com/yungbote/videoguard-backend/internal/moderation/verdict"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

const (
	adapterObjects   = "objects"
	adapterNarrative = "narrative"
	adapterText      = "text"
)

var tracer = otel.Tracer("github.com/yungbote/videoguard-backend/internal/moderation/engine")

// Adapters holds the detectors for a job. Narrative and Text may be nil.
type Adapters struct {
	Objects   detectors.ObjectDetector
	Narrative detectors.NarrativeAnalyzer
	Text      detectors.TextModerator
}

type Timeouts struct {
	Objects   time.Duration
	Narrative time.Duration
	Text      time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Objects: 10 * time.Minute, Narrative: 5 * time.Minute, Text: 5 * time.Minute}
}

// Observer receives per-adapter latency and failures.
type Observer interface {
	ObserveAdapter(adapter string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveAdapter(string, time.Duration, error) {}

type Options struct {
	Timeouts Timeouts
	Observer Observer
}

type Engine struct {
	log        *logger.Logger
	adapters   Adapters
	timeouts   Timeouts
	observer   Observer
	fusion     *fusion.Engine
	rules      *hardrule.Checker
	calculator *scoring.Calculator
	classifier *verdict.Classifier
}

func New(log *logger.Logger, cfg moderation.ScoringConfig, adapters Adapters, opts Options) *Engine {
	norm := taxonomy.NewNormalizer(cfg)
	def := DefaultTimeouts()
	t := opts.Timeouts
	if t.Objects <= 0 {
		t.Objects = def.Objects
	}
	if t.Narrative <= 0 {
		t.Narrative = def.Narrative
	}
	if t.Text <= 0 {
		t.Text = def.Text
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Engine{
		log:        log.With("service", "ModerationEngine"),
		adapters:   adapters,
		timeouts:   t,
		observer:   obs,
		fusion:     fusion.NewEngine(norm),
		rules:      hardrule.NewChecker(cfg),
		calculator: scoring.NewCalculator(cfg),
		classifier: verdict.NewClassifier(cfg, norm),
	}
}

type adapterResults struct {
	objects      moderation.ObjectAnalysis
	objectsErr   error
	narrative    moderation.NarrativeAnalysis
	narrativeErr error
	narrativeRan bool
	text         moderation.TextAnalysis
	textErr      error
	textRan      bool
}

// Analyze runs every configured adapter concurrently and decides the video. A failure of the
// object detector fails the whole attempt and discards the optional results.
func (e *Engine) Analyze(ctx context.Context, uri string) moderation.Outcome {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		err := &moderation.ClientInputError{Msg: "video uri is empty"}
		return moderation.Fatal(err.Error(), err)
	}
	if e.adapters.Objects == nil {
		err := fmt.Errorf("object detector not configured")
		return moderation.Fatal(err.Error(), err)
	}

	ctx, span := tracer.Start(ctx, "moderation.Analyze")
	defer span.End()

	r := e.run(ctx, uri)
	if r.objectsErr != nil {
		err := r.objectsErr
		if ctx.Err() != nil && !moderation.IsTransient(err) {
			err = &moderation.TransientProviderError{Provider: moderation.DetectorObjectTracker, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "object detector failed")
		e.log.Warn("Object detector failed", "uri", uri, "error", err, "class", moderation.Classify(err))
		return moderation.OutcomeFromError(err)
	}

	res := e.decide(r)
	span.SetAttributes(
		attribute.String("moderation.verdict", string(res.Verdict)),
		attribute.Float64("moderation.confidence", res.ConfidenceScore),
	)
	e.log.Info("Video moderated",
		"uri", uri,
		"verdict", res.Verdict,
		"confidence", res.ConfidenceScore,
		"alerts", res.Alerts.Sorted(),
		"text_level", res.Text.Level,
		"hard_rule", res.HardRule,
	)
	return moderation.Ok(res)
}

func (e *Engine) run(ctx context.Context, uri string) adapterResults {
	var r adapterResults
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.objects, r.objectsErr = call(gctx, e, adapterObjects, moderation.DetectorObjectTracker, e.timeouts.Objects,
			func(ctx context.Context) (moderation.ObjectAnalysis, error) {
				return e.adapters.Objects.Analyze(ctx, uri)
			})
		return r.objectsErr
	})
	if e.adapters.Narrative != nil {
		r.narrativeRan = true
		g.Go(func() error {
			r.narrative, r.narrativeErr = call(gctx, e, adapterNarrative, moderation.DetectorNarrative, e.timeouts.Narrative,
				func(ctx context.Context) (moderation.NarrativeAnalysis, error) {
					return e.adapters.Narrative.Analyze(ctx, uri)
				})
			return nil
		})
	}
	if e.adapters.Text != nil {
		r.textRan = true
		g.Go(func() error {
			r.text, r.textErr = call(gctx, e, adapterText, moderation.DetectorText, e.timeouts.Text,
				func(ctx context.Context) (moderation.TextAnalysis, error) {
					return e.adapters.Text.Analyze(ctx, uri)
				})
			return nil
		})
	}
	_ = g.Wait()
	return r
}

// call runs one adapter under its own timeout and span. A timeout is reported as a transient
// provider failure.
func call[T any](ctx context.Context, e *Engine, name string, source moderation.Detector, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "adapter."+name)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !moderation.IsTransient(err) {
		err = &moderation.TransientProviderError{Provider: source, Err: fmt.Errorf("%s timed out after %s: %w", name, timeout, err)}
	}
	elapsed := time.Since(start)
	e.observer.ObserveAdapter(name, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return out, err
}

func (e *Engine) decide(r adapterResults) *moderation.FusedResult {
	sources := []moderation.Detector{moderation.DetectorObjectTracker}
	outputs := []moderation.DetectorOutput{{
		Source:   moderation.DetectorObjectTracker,
		Findings: r.objects.Findings,
	}}

	var narrative moderation.NarrativeAnalysis
	switch {
	case !r.narrativeRan:
	case r.narrativeErr != nil:
		e.log.Warn("Narrative analyzer failed; continuing without it", "error", r.narrativeErr)
	default:
		narrative = r.narrative
		sources = append(sources, moderation.DetectorNarrative)
		outputs = append(outputs, moderation.DetectorOutput{
			Source:   moderation.DetectorNarrative,
			Findings: narrative.Findings,
			Evidence: narrative.Evidence,
			Notes:    narrative.Notes,
		})
	}

	text := moderation.TextAnalysis{Level: moderation.TextClean, ProblemWords: []string{}}
	switch {
	case !r.textRan:
	case r.textErr != nil:
		e.log.Warn("Text moderation failed", "error", r.textErr)
		text = r.text
		if text.Level != moderation.TextError {
			text = moderation.FailedText(r.textErr)
		}
	default:
		text = r.text
		sources = append(sources, moderation.DetectorText)
	}
	if text.ProblemWords == nil {
		text.ProblemWords = []string{}
	}
	if dt := strings.TrimSpace(narrative.DetectedText); dt != "" {
		text.Text = strings.Trim(strings.TrimSpace(text.Text)+", "+dt, ", ")
	}

	partial := e.fusion.Fuse(outputs)
	override := e.rules.Check(partial.Evidence)
	score := e.calculator.Score(r.objects.Confidences, partial.Objects, partial.Alerts)
	d := e.classifier.Classify(verdict.Input{
		Alerts:          partial.Alerts,
		ConfidenceScore: score,
		TextLevel:       text.Level,
		Override:        override,
		ProblemWords:    text.ProblemWords,
	})

	labels := r.objects.Labels
	if labels == nil {
		labels = []string{}
	}
	logos := r.objects.Logos
	if logos == nil {
		logos = []moderation.Logo{}
	}
	explicit := r.objects.Explicit
	if explicit == "" {
		explicit = moderation.ExplicitNotAnalyzed
	}
	return &moderation.FusedResult{
		Objects:         partial.Objects,
		Evidence:        partial.Evidence,
		Alerts:          partial.Alerts,
		ConfidenceScore: score,
		SafetyScore:     scoring.SafetyScore(score),
		VisualState:     d.VisualState,
		TextState:       d.TextState,
		Verdict:         d.Verdict,
		Reason:          d.Reason,
		HardRule:        d.HardRule,
		Labels:          labels,
		Logos:           logos,
		Explicit:        explicit,
		Text:            text,
		Summary:         narrative.Summary,
		Sources:         sources,
		DurationSec:     r.objects.DurationSec,
	}
}
