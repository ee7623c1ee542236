package app

import (
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/videoguard-backend/internal/clients/gcp"
	"github.com/yungbote/videoguard-backend/internal/clients/redis"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
	"github.com/yungbote/videoguard-backend/internal/platform/localmedia"
	"github.com/yungbote/videoguard-backend/internal/temporalx"
)

type Clients struct {
	StatusBus redis.StatusBus
	Temporal  temporalsdkclient.Client

	GcpVideo    gcp.VideoIntelligence
	GcpVision   gcp.Vision
	GcpBucket   gcp.BucketService
	GcpLanguage gcp.Language
	GcpSpeech   gcp.Speech
	Gemini      gcp.Gemini
	Media       localmedia.Tools

	closers []func() error
}

// wireDelivery connects the status bus and Temporal; both are optional.
func wireDelivery(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring delivery clients...")
	var c Clients

	if cfg.RedisAddr != "" {
		bus, err := redis.NewStatusBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			return c, fmt.Errorf("init redis status bus: %w", err)
		}
		c.StatusBus = bus
		c.closers = append(c.closers, bus.Close)
	}

	tc, err := temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	if tc != nil {
		c.Temporal = tc
		c.closers = append(c.closers, func() error { tc.Close(); return nil })
	}
	return c, nil
}

// wireProviders connects the Google Cloud clients the detectors need. Optional providers are
// skipped when disabled by config.
func (c *Clients) wireProviders(log *logger.Logger, cfg Config) error {
	log.Info("Wiring provider clients...")

	video, err := gcp.NewVideoIntelligence(log, cfg.VideoTimeout)
	if err != nil {
		return fmt.Errorf("init video intelligence client: %w", err)
	}
	c.GcpVideo = video
	c.closers = append(c.closers, video.Close)

	if cfg.EnableNarrative {
		gemini, err := gcp.NewGemini(log, gcp.GeminiConfig{
			Project:  cfg.VertexProject,
			Location: cfg.VertexLocation,
			Model:    cfg.VertexModel,
		})
		if err != nil {
			return fmt.Errorf("init gemini client: %w", err)
		}
		c.Gemini = gemini
	}

	if !cfg.EnableTextModeration {
		return nil
	}
	c.Media = localmedia.New(log, cfg.MediaWorkDir)

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return fmt.Errorf("init bucket client: %w", err)
	}
	c.GcpBucket = bucket
	c.closers = append(c.closers, bucket.Close)

	vision, err := gcp.NewVision(log)
	if err != nil {
		return fmt.Errorf("init vision client: %w", err)
	}
	c.GcpVision = vision
	c.closers = append(c.closers, vision.Close)

	language, err := gcp.NewLanguage(log)
	if err != nil {
		return fmt.Errorf("init language client: %w", err)
	}
	c.GcpLanguage = language
	c.closers = append(c.closers, language.Close)

	if cfg.EnableTranscription {
		speech, err := gcp.NewSpeech(log)
		if err != nil {
			return fmt.Errorf("init speech client: %w", err)
		}
		c.GcpSpeech = speech
		c.closers = append(c.closers, speech.Close)
	}
	return nil
}

// Close releases clients in reverse order of creation.
func (c *Clients) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
