package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/ctxutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// VideoIntelligence annotates a stored video with labels, objects, logos, shots and explicit content.
type VideoIntelligence interface {
	Annotate(ctx context.Context, gcsURI string) (*vipb.VideoAnnotationResults, error)
	Close() error
}

type videoService struct {
	log        *logger.Logger
	client     *videointelligence.Client
	timeout    time.Duration
	maxRetries int
}

var annotateFeatures = []vipb.Feature{
	vipb.Feature_LABEL_DETECTION,
	vipb.Feature_EXPLICIT_CONTENT_DETECTION,
	vipb.Feature_LOGO_RECOGNITION,
	vipb.Feature_OBJECT_TRACKING,
	vipb.Feature_SHOT_CHANGE_DETECTION,
}

func NewVideoIntelligence(log *logger.Logger, timeout time.Duration) (VideoIntelligence, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	c, err := videointelligence.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	return &videoService{
		log:        log.With("service", "gcp.VideoIntelligence"),
		client:     c,
		timeout:    timeout,
		maxRetries: defaultMaxRetries,
	}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) Annotate(ctx context.Context, gcsURI string) (*vipb.VideoAnnotationResults, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, &moderation.ClientInputError{Msg: fmt.Sprintf("video uri must be gs://..., got %q", gcsURI)}
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &vipb.AnnotateVideoRequest{
		InputUri: gcsURI,
		Features: annotateFeatures,
		VideoContext: &vipb.VideoContext{
			LabelDetectionConfig: &vipb.LabelDetectionConfig{
				LabelDetectionMode: vipb.LabelDetectionMode_SHOT_AND_FRAME_MODE,
			},
		},
	}

	start := time.Now()
	resp, err := withRetry(ctx, s.maxRetries, func(ctx context.Context) (*vipb.AnnotateVideoResponse, error) {
		op, err := s.client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, ProviderError(moderation.DetectorObjectTracker, fmt.Errorf("annotate video: %w", err))
	}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return nil, ProviderError(moderation.DetectorObjectTracker, fmt.Errorf("annotate video: empty response"))
	}
	res := resp.AnnotationResults[0]
	if res.Error != nil && res.Error.Message != "" {
		return nil, ProviderError(moderation.DetectorObjectTracker, fmt.Errorf("annotate video: %s", res.Error.Message))
	}
	s.log.Debug("Video annotated",
		"uri", gcsURI,
		"objects", len(res.ObjectAnnotations),
		"segment_labels", len(res.SegmentLabelAnnotations),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
