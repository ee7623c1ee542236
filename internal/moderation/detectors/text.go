package detectors

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yungbote/videoguard-backend/internal/clients/gcp"
	"github.com/yungbote/videoguard-backend/internal/moderation/textmod"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
	"github.com/yungbote/videoguard-backend/internal/platform/localmedia"
)

const (
	sceneThreshold     = 0.3
	fallbackIntervalS  = 2.0
	ocrFrameWidth      = 1280
	maxTranscriptSecs  = 300
	defaultOCRMaxFrame = 10
)

// frameOCR downloads the video, samples keyframes and reads their overlay text.
type frameOCR struct {
	log    *logger.Logger
	bucket gcp.BucketService
	media  localmedia.Tools
	vision gcp.Vision
}

func NewFrameOCR(log *logger.Logger, bucket gcp.BucketService, media localmedia.Tools, vision gcp.Vision) textmod.TextExtractor {
	return &frameOCR{log: log.With("service", "FrameOCR"), bucket: bucket, media: media, vision: vision}
}

func (o *frameOCR) ExtractText(ctx context.Context, uri string, maxFrames int) (textmod.Extraction, error) {
	if maxFrames <= 0 {
		maxFrames = defaultOCRMaxFrame
	}
	dir, cleanup, err := o.media.WorkDir("ocr")
	if err != nil {
		return textmod.Extraction{}, err
	}
	defer cleanup()

	videoPath, err := download(ctx, o.bucket, uri, dir)
	if err != nil {
		return textmod.Extraction{}, err
	}
	frames, err := o.keyframes(ctx, videoPath, filepath.Join(dir, "frames"), maxFrames)
	if err != nil {
		return textmod.Extraction{}, err
	}

	images := make([][]byte, 0, len(frames))
	for _, f := range frames {
		b, err := os.ReadFile(f)
		if err != nil {
			return textmod.Extraction{}, fmt.Errorf("read frame: %w", err)
		}
		images = append(images, b)
	}
	texts, err := o.vision.DetectText(ctx, images)
	if err != nil {
		return textmod.Extraction{}, err
	}
	joined := joinFrameTexts(texts)
	o.log.Debug("Frame OCR done", "uri", uri, "frames", len(frames), "chars", len(joined))
	return textmod.Extraction{Text: joined, Frames: len(frames)}, nil
}

// keyframes prefers scene changes, where overlay text usually changes, and falls back to a
// fixed interval for static videos.
func (o *frameOCR) keyframes(ctx context.Context, videoPath, outDir string, maxFrames int) ([]string, error) {
	frames, err := o.media.ExtractKeyframes(ctx, videoPath, outDir, localmedia.KeyframeOptions{
		SceneThreshold: sceneThreshold,
		Width:          ocrFrameWidth,
		MaxFrames:      maxFrames,
	})
	if err == nil && len(frames) > 0 {
		return frames, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	o.log.Debug("Scene keyframes unavailable, sampling at fixed interval", "error", err)
	return o.media.ExtractKeyframes(ctx, videoPath, outDir+"-interval", localmedia.KeyframeOptions{
		IntervalSeconds: fallbackIntervalS,
		Width:           ocrFrameWidth,
		MaxFrames:       maxFrames,
	})
}

// joinFrameTexts drops empty frames and repeats of the previous frame's text.
func joinFrameTexts(texts []string) string {
	parts := make([]string, 0, len(texts))
	prev := ""
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" || strings.EqualFold(t, prev) {
			continue
		}
		parts = append(parts, t)
		prev = t
	}
	return strings.Join(parts, " ")
}

// transcriber reads the spoken track of the video.
type transcriber struct {
	log    *logger.Logger
	bucket gcp.BucketService
	media  localmedia.Tools
	speech gcp.Speech
	cfg    gcp.SpeechConfig
}

func NewTranscriber(log *logger.Logger, bucket gcp.BucketService, media localmedia.Tools, speech gcp.Speech, cfg gcp.SpeechConfig) textmod.TextExtractor {
	return &transcriber{log: log.With("service", "Transcriber"), bucket: bucket, media: media, speech: speech, cfg: cfg}
}

func (t *transcriber) ExtractText(ctx context.Context, uri string, _ int) (textmod.Extraction, error) {
	dir, cleanup, err := t.media.WorkDir("audio")
	if err != nil {
		return textmod.Extraction{}, err
	}
	defer cleanup()

	videoPath, err := download(ctx, t.bucket, uri, dir)
	if err != nil {
		return textmod.Extraction{}, err
	}
	wav, err := t.media.ExtractAudioFromVideo(ctx, videoPath, filepath.Join(dir, "audio.wav"), localmedia.AudioExtractOptions{
		SampleRateHz: 16000,
		Channels:     1,
		MaxSeconds:   maxTranscriptSecs,
	})
	if err != nil {
		return textmod.Extraction{}, err
	}
	audio, err := os.ReadFile(wav)
	if err != nil {
		return textmod.Extraction{}, fmt.Errorf("read audio: %w", err)
	}
	text, err := t.speech.TranscribeAudio(ctx, audio, t.cfg)
	if err != nil {
		return textmod.Extraction{}, err
	}
	return textmod.Extraction{Text: text}, nil
}

func download(ctx context.Context, bucket gcp.BucketService, uri, dir string) (string, error) {
	ext := path.Ext(uri)
	if ext == "" || len(ext) > 5 {
		ext = ".mp4"
	}
	videoPath := filepath.Join(dir, "video"+ext)
	if _, err := bucket.DownloadToFile(ctx, uri, videoPath); err != nil {
		return "", err
	}
	return videoPath, nil
}
