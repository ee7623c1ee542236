package gcp

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/ctxutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// Gemini runs a multimodal prompt over a stored video on Vertex AI.
type Gemini interface {
	GenerateFromVideo(ctx context.Context, gcsURI, prompt string) (string, error)
	Model() string
}

type GeminiConfig struct {
	Project  string
	Location string
	Model    string
	Timeout  time.Duration
}

type geminiService struct {
	log        *logger.Logger
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

func NewGemini(log *logger.Logger, cfg GeminiConfig) (Gemini, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Project) == "" {
		cfg.Project = strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("missing vertex project id")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  cfg.Project,
		Location: cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &geminiService{
		log:        log.With("service", "gcp.Gemini", "model", cfg.Model),
		client:     c,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: 2,
	}, nil
}

func (s *geminiService) Model() string { return s.model }

func (s *geminiService) GenerateFromVideo(ctx context.Context, gcsURI, prompt string) (string, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", &moderation.ClientInputError{Msg: fmt.Sprintf("video uri must be gs://..., got %q", gcsURI)}
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(gcsURI, VideoMimeType(gcsURI)),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	text, err := withRetry(ctx, s.maxRetries, func(ctx context.Context) (string, error) {
		resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, cfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
	if err != nil {
		return "", ProviderError(moderation.DetectorNarrative, fmt.Errorf("gemini generate: %w", err))
	}
	return text, nil
}

// VideoMimeType guesses the container type from the object extension.
func VideoMimeType(uri string) string {
	switch strings.ToLower(path.Ext(uri)) {
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	case ".mpeg", ".mpg":
		return "video/mpeg"
	case ".3gp":
		return "video/3gpp"
	default:
		return "video/mp4"
	}
}
