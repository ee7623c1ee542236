package textmod

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// Extraction is text pulled from a video, with the number of frames it came from.
type Extraction struct {
	Text   string
	Frames int
}

// TextExtractor pulls readable text out of a video (OCR over sampled frames, transcripts).
type TextExtractor interface {
	ExtractText(ctx context.Context, uri string, maxFrames int) (Extraction, error)
}

type Moderator struct {
	log        *logger.Logger
	cfg        moderation.ScoringConfig
	ocr        TextExtractor
	transcript TextExtractor
	sources    []WordSource
	classifier Classifier
}

type Options struct {
	OCR TextExtractor
	// Transcript is optional; its failures are logged and ignored.
	Transcript TextExtractor
	Sources    []WordSource
	Classifier Classifier
}

func NewModerator(log *logger.Logger, cfg moderation.ScoringConfig, opts Options) *Moderator {
	return &Moderator{
		log:        log.With("service", "TextModerator"),
		cfg:        cfg,
		ocr:        opts.OCR,
		transcript: opts.Transcript,
		sources:    opts.Sources,
		classifier: opts.Classifier,
	}
}

// Analyze runs OCR over the video and moderates the result. OCR failure yields level error.
func (m *Moderator) Analyze(ctx context.Context, uri string) (moderation.TextAnalysis, error) {
	if m.ocr == nil {
		err := fmt.Errorf("no text extractor configured")
		return moderation.FailedText(err), err
	}
	ext, err := m.ocr.ExtractText(ctx, uri, m.cfg.OCRMaxFrames)
	if err != nil {
		m.log.Warn("OCR failed", "uri", uri, "error", err)
		return moderation.FailedText(err), fmt.Errorf("ocr: %w", err)
	}
	text := strings.TrimSpace(ext.Text)
	if m.transcript != nil {
		tr, terr := m.transcript.ExtractText(ctx, uri, m.cfg.OCRMaxFrames)
		switch {
		case terr != nil:
			m.log.Warn("Transcript extraction failed; continuing with OCR text", "uri", uri, "error", terr)
		case strings.TrimSpace(tr.Text) != "":
			text = strings.TrimSpace(text + "\n" + tr.Text)
		}
	}
	res := m.AnalyzeText(ctx, text)
	res.FramesAnalyzed = ext.Frames
	return res, nil
}

// AnalyzeText moderates already extracted text.
func (m *Moderator) AnalyzeText(ctx context.Context, text string) moderation.TextAnalysis {
	res := moderation.TextAnalysis{
		Text:            text,
		ProblemWords:    []string{},
		SourceWords:     map[string][]string{},
		LexicalLevel:    moderation.TextClean,
		ClassifierLevel: moderation.TextClean,
	}
	tokens := Tokens(text)

	merged := map[string]string{}
	var errs []string
	for _, src := range m.sources {
		words, err := src.Find(ctx, text, tokens)
		if err != nil {
			m.log.Warn("Word source failed", "source", src.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("%s: %v", src.Name(), err))
			res.LexicalLevel = moderation.TextError
			continue
		}
		keys := make([]string, 0, len(words))
		for _, w := range words {
			key := strings.Join(Tokens(w), " ")
			if key == "" {
				continue
			}
			keys = append(keys, key)
			if _, ok := merged[key]; !ok {
				merged[key] = strings.TrimSpace(w)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			res.SourceWords[src.Name()] = keys
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		res.ProblemWords = append(res.ProblemWords, merged[k])
	}
	res.LexicalLevel = moderation.MaxTextLevel(res.LexicalLevel, lexicalLevel(len(keys)))

	if m.classifier != nil && len(tokens) > 0 {
		raw, err := m.classifier.ModerateText(ctx, text)
		if err != nil {
			m.log.Warn("Text classifier failed", "error", err)
			errs = append(errs, fmt.Sprintf("classifier: %v", err))
			res.ClassifierLevel = moderation.TextError
		} else {
			cr := classifyCategories(raw, m.cfg.TextSuspect, m.cfg.TextProblematic)
			res.ClassifierLevel = cr.level
			res.Categories = cr.scores
			res.TopCategory = cr.top
			res.TopScore = cr.topScore
		}
	}

	res.Level = moderation.MaxTextLevel(res.LexicalLevel, res.ClassifierLevel)
	if len(errs) > 0 {
		res.Error = strings.Join(errs, "; ")
	}
	return res
}
