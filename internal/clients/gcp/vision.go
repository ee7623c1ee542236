package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/ctxutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// Vision reads overlay text from still frames.
type Vision interface {
	DetectText(ctx context.Context, images [][]byte) ([]string, error)
	Close() error
}

// Images per BatchAnnotateImages call.
const visionBatchSize = 16

type visionService struct {
	log        *logger.Logger
	client     *vision.ImageAnnotatorClient
	maxRetries int
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{
		log:        log.With("service", "gcp.Vision"),
		client:     c,
		maxRetries: defaultMaxRetries,
	}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// DetectText returns the text found in each image, in input order. Images without text yield "".
func (s *visionService) DetectText(ctx context.Context, images [][]byte) ([]string, error) {
	out := make([]string, len(images))
	if len(images) == 0 {
		return out, nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	for start := 0; start < len(images); start += visionBatchSize {
		end := start + visionBatchSize
		if end > len(images) {
			end = len(images)
		}
		reqs := make([]*visionpb.AnnotateImageRequest, 0, end-start)
		for _, img := range images[start:end] {
			reqs = append(reqs, &visionpb.AnnotateImageRequest{
				Image:    &visionpb.Image{Content: img},
				Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
			})
		}
		br := &visionpb.BatchAnnotateImagesRequest{Requests: reqs}
		resp, err := withRetry(ctx, s.maxRetries, func(ctx context.Context) (*visionpb.BatchAnnotateImagesResponse, error) {
			return s.client.BatchAnnotateImages(ctx, br)
		})
		if err != nil {
			return nil, ProviderError(moderation.DetectorText, fmt.Errorf("vision BatchAnnotateImages: %w", err))
		}
		texts, err := parseTextResponses(resp)
		if err != nil {
			return nil, ProviderError(moderation.DetectorText, err)
		}
		copy(out[start:end], texts)
	}
	return out, nil
}

func parseTextResponses(resp *visionpb.BatchAnnotateImagesResponse) ([]string, error) {
	if resp == nil {
		return nil, nil
	}
	out := make([]string, len(resp.Responses))
	for i, r := range resp.Responses {
		if r == nil {
			continue
		}
		if r.Error != nil && r.Error.Message != "" {
			return nil, fmt.Errorf("vision annotate error: %s", r.Error.Message)
		}
		out[i] = frameText(r)
	}
	return out, nil
}

// frameText prefers the full annotation and falls back to the first text annotation,
// which holds the whole detected block.
func frameText(r *visionpb.AnnotateImageResponse) string {
	if fta := r.GetFullTextAnnotation(); fta != nil && strings.TrimSpace(fta.Text) != "" {
		return collapseWhitespace(fta.Text)
	}
	if ann := r.GetTextAnnotations(); len(ann) > 0 && ann[0] != nil {
		return collapseWhitespace(ann[0].Description)
	}
	return ""
}
