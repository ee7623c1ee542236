package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	dbpkg "github.com/yungbote/videoguard-backend/internal/data/db"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/observability"
	"github.com/yungbote/videoguard-backend/internal/pkg/envutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
	"github.com/yungbote/videoguard-backend/internal/temporalx"
)

const (
	ServiceName           = "videoguard"
	labelOverridePrefix   = "OBJECT_CONF_THRESH_"
	defaultBadWordsLocale = "es"
)

type Config struct {
	Port        string
	MetricsAddr string
	CORSOrigins []string

	DB       dbpkg.Config
	Temporal temporalx.Config
	Otel     observability.OtelConfig

	Scoring moderation.ScoringConfig

	VideoTimeout         time.Duration
	BadWordsLocale       string
	EnableTextModeration bool
	EnableTranscription  bool
	EnableNarrative      bool
	SpeechLanguage       string
	VertexProject        string
	VertexLocation       string
	VertexModel          string
	MediaWorkDir         string

	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	StaleAfter         time.Duration
	SweepInterval      time.Duration

	RedisAddr    string
	RedisChannel string

	AdminJWTSecret string
	TasksToken     string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        envutil.GetEnv("PORT", "8080", log),
		MetricsAddr: envutil.GetEnv("METRICS_ADDR", "", log),
		CORSOrigins: envutil.GetEnvAsList("CORS_ORIGINS", log),

		DB:       dbpkg.ConfigFromEnv(log),
		Temporal: temporalx.LoadConfig(log),
		Otel:     observability.OtelConfigFromEnv(log, ServiceName),

		Scoring: loadScoringConfig(log),

		VideoTimeout:         time.Duration(envutil.GetEnvAsInt("VIDEO_ANNOTATE_TIMEOUT_MIN", 10, log)) * time.Minute,
		BadWordsLocale:       envutil.GetEnv("BAD_WORDS_LOCALE", defaultBadWordsLocale, log),
		EnableTextModeration: envutil.GetEnvAsBool("ENABLE_TEXT_MODERATION", true, log),
		EnableTranscription:  envutil.GetEnvAsBool("ENABLE_TRANSCRIPTION", false, log),
		EnableNarrative:      envutil.GetEnvAsBool("USE_VERTEX_AI", true, log),
		SpeechLanguage:       envutil.GetEnv("SPEECH_LANGUAGE_CODE", "es-AR", log),
		VertexProject:        envutil.GetEnv("VERTEX_PROJECT_ID", "", log),
		VertexLocation:       envutil.GetEnv("VERTEX_LOCATION", "us-central1", log),
		VertexModel:          envutil.GetEnv("VERTEX_FOUNDATION_MODEL", "gemini-2.5-flash", log),
		MediaWorkDir:         envutil.GetEnv("MEDIA_WORK_DIR", "", log),

		WorkerConcurrency:  envutil.GetEnvAsInt("WORKER_CONCURRENCY", 4, log),
		WorkerPollInterval: time.Duration(envutil.GetEnvAsInt("WORKER_POLL_INTERVAL_MS", 5000, log)) * time.Millisecond,
		StaleAfter:         time.Duration(envutil.GetEnvAsInt("STALE_PROCESSING_AFTER_MIN", 120, log)) * time.Minute,
		SweepInterval:      time.Duration(envutil.GetEnvAsInt("SWEEP_INTERVAL_MIN", 10, log)) * time.Minute,

		RedisAddr:    envutil.GetEnv("REDIS_ADDR", "", log),
		RedisChannel: envutil.GetEnv("REDIS_CHANNEL", "", log),

		AdminJWTSecret: envutil.GetEnv("ADMIN_JWT_SECRET", "", log),
		TasksToken:     envutil.GetEnv("TASKS_TOKEN", "", log),
	}
}

func loadScoringConfig(log *logger.Logger) moderation.ScoringConfig {
	return moderation.NewScoringConfig(moderation.ScoringOptions{
		ConfidenceThreshold: envutil.GetEnvAsFloat("OBJECT_CONFIDENCE_THRESHOLD", 0.25, log),
		MinFrames:           envutil.GetEnvAsInt("OBJECT_MIN_FRAMES", 3, log),
		TopK:                envutil.GetEnvAsInt("OBJECT_TOPK", 20, log),
		Allowlist:           envutil.GetEnvAsList("OBJECT_LABEL_ALLOWLIST", log),
		Denylist:            envutil.GetEnvAsList("OBJECT_LABEL_DENYLIST", log),
		LabelOverrides:      labelOverrides(os.Environ(), log),
		FrameWindowSec:      envutil.GetEnvAsFloat("OBJECT_FRAME_WINDOW_S", 0.20, log),
		DedupeWindowSec:     envutil.GetEnvAsFloat("FUSION_DEDUPE_WINDOW_S", 0.20, log),
		LabelThreshold:      envutil.GetEnvAsFloat("LABEL_CONFIDENCE_THRESHOLD", 0.40, log),
		LogoThreshold:       envutil.GetEnvAsFloat("LOGO_CONFIDENCE_THRESHOLD", 0.15, log),
		TextSuspect:         envutil.GetEnvAsFloat("PROFANITY_SUSPECT", 0.30, log),
		TextProblematic:     envutil.GetEnvAsFloat("PROFANITY_PROBLEMATIC", 0.60, log),
		OCRMaxFrames:        envutil.GetEnvAsInt("OCR_MAX_FRAMES", 10, log),
	})
}

// labelOverrides collects OBJECT_CONF_THRESH_<LABEL>=<0..1> pairs; the label keeps its env
// spelling and is matched through moderation.OverrideKey.
func labelOverrides(environ []string, log *logger.Logger) map[string]float64 {
	out := map[string]float64{}
	for _, kv := range environ {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, labelOverridePrefix) {
			continue
		}
		label := strings.TrimPrefix(key, labelOverridePrefix)
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if label == "" || err != nil || v < 0 || v > 1 {
			if log != nil {
				log.Warn("Ignoring label threshold override", "env_var", key, "value", raw)
			}
			continue
		}
		out[label] = v
	}
	return out
}
