package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	language "cloud.google.com/go/language/apiv2"
	languagepb "cloud.google.com/go/language/apiv2/languagepb"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/ctxutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// Language scores text against the managed moderation categories.
type Language interface {
	ModerateText(ctx context.Context, text string) (map[string]float64, error)
	Close() error
}

type languageService struct {
	log        *logger.Logger
	client     *language.Client
	maxRetries int
}

func NewLanguage(log *logger.Logger) (Language, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := language.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("language client: %w", err)
	}
	return &languageService{
		log:        log.With("service", "gcp.Language"),
		client:     c,
		maxRetries: defaultMaxRetries,
	}, nil
}

func (s *languageService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// ModerateText returns category name to confidence. Empty text returns an empty map without a call.
func (s *languageService) ModerateText(ctx context.Context, text string) (map[string]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]float64{}, nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := &languagepb.ModerateTextRequest{
		Document: &languagepb.Document{
			Type:   languagepb.Document_PLAIN_TEXT,
			Source: &languagepb.Document_Content{Content: text},
		},
	}
	resp, err := withRetry(ctx, s.maxRetries, func(ctx context.Context) (*languagepb.ModerateTextResponse, error) {
		return s.client.ModerateText(ctx, req)
	})
	if err != nil {
		return nil, ProviderError(moderation.DetectorText, fmt.Errorf("language ModerateText: %w", err))
	}
	return moderationScores(resp), nil
}

func moderationScores(resp *languagepb.ModerateTextResponse) map[string]float64 {
	out := map[string]float64{}
	if resp == nil {
		return out
	}
	for _, c := range resp.GetModerationCategories() {
		if c == nil || strings.TrimSpace(c.Name) == "" {
			continue
		}
		out[c.Name] = float64(c.Confidence)
	}
	return out
}
