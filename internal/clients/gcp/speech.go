package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/ctxutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// Speech transcribes the audio track extracted from a video.
type Speech interface {
	TranscribeAudio(ctx context.Context, audio []byte, cfg SpeechConfig) (string, error)
	Close() error
}

type SpeechConfig struct {
	LanguageCode    string
	AltLanguages    []string
	SampleRateHertz int
}

type speechService struct {
	log        *logger.Logger
	client     *speech.Client
	maxRetries int
}

func NewSpeech(log *logger.Logger) (Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := speech.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &speechService{
		log:        log.With("service", "gcp.Speech"),
		client:     c,
		maxRetries: defaultMaxRetries,
	}, nil
}

func (s *speechService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// TranscribeAudio expects 16-bit little-endian mono PCM.
func (s *speechService) TranscribeAudio(ctx context.Context, audio []byte, cfg SpeechConfig) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: recognitionConfig(cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	resp, err := withRetry(ctx, s.maxRetries, func(ctx context.Context) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := s.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return "", ProviderError(moderation.DetectorText, fmt.Errorf("speech longrunningrecognize: %w", err))
	}
	return transcript(resp), nil
}

func recognitionConfig(cfg SpeechConfig) *speechpb.RecognitionConfig {
	lang := strings.TrimSpace(cfg.LanguageCode)
	if lang == "" {
		lang = "es-AR"
	}
	rate := cfg.SampleRateHertz
	if rate <= 0 {
		rate = 16000
	}
	return &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(rate),
		AudioChannelCount:          1,
		LanguageCode:               lang,
		AlternativeLanguageCodes:   cfg.AltLanguages,
		EnableAutomaticPunctuation: true,
		ProfanityFilter:            false,
	}
}

func transcript(resp *speechpb.LongRunningRecognizeResponse) string {
	if resp == nil {
		return ""
	}
	parts := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return collapseWhitespace(strings.Join(parts, " "))
}
