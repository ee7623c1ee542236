package app

import (
	"fmt"

	"github.com/yungbote/videoguard-backend/internal/clients/gcp"
	"github.com/yungbote/videoguard-backend/internal/moderation/detectors"
	"github.com/yungbote/videoguard-backend/internal/moderation/engine"
	"github.com/yungbote/videoguard-backend/internal/moderation/textmod"
	"github.com/yungbote/videoguard-backend/internal/observability"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// wireEngine builds the detector adapters over the provider clients. The engine is the only
// owner of the adapters.
func wireEngine(log *logger.Logger, cfg Config, c Clients, rs Repos, metrics *observability.Metrics) (*engine.Engine, error) {
	log.Info("Wiring moderation engine...")
	if c.GcpVideo == nil {
		return nil, fmt.Errorf("video intelligence client is required")
	}
	adapters := engine.Adapters{
		Objects: detectors.NewObjectDetector(log, c.GcpVideo, cfg.Scoring),
	}
	if c.Gemini != nil {
		adapters.Narrative = detectors.NewNarrativeAnalyzer(log, c.Gemini)
	}
	if cfg.EnableTextModeration && c.GcpVision != nil {
		lex, err := textmod.DefaultLexicon()
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		opts := textmod.Options{
			OCR: detectors.NewFrameOCR(log, c.GcpBucket, c.Media, c.GcpVision),
			Sources: []textmod.WordSource{
				textmod.NewLexiconSource(lex, cfg.BadWordsLocale),
				textmod.NewCommunitySource(),
				textmod.NewCategorySource(rs.BadWord, cfg.BadWordsLocale),
			},
		}
		if c.GcpLanguage != nil {
			opts.Classifier = c.GcpLanguage
		}
		if c.GcpSpeech != nil {
			opts.Transcript = detectors.NewTranscriber(log, c.GcpBucket, c.Media, c.GcpSpeech, gcp.SpeechConfig{
				LanguageCode: cfg.SpeechLanguage,
				AltLanguages: []string{"en-US"},
			})
		}
		adapters.Text = textmod.NewModerator(log, cfg.Scoring, opts)
	}

	timeouts := engine.DefaultTimeouts()
	if cfg.VideoTimeout > 0 {
		timeouts.Objects = cfg.VideoTimeout
	}
	return engine.New(log, cfg.Scoring, adapters, engine.Options{
		Timeouts: timeouts,
		Observer: metrics,
	}), nil
}
