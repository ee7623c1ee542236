package temporalx

import (
	"time"

	"github.com/yungbote/videoguard-backend/internal/pkg/envutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout       time.Duration
	DialMaxWait       time.Duration
	DialBackoff       time.Duration
	DialBackoffMax    time.Duration
	AutoRegister      bool
	RetentionDays     int
	MaxActivityTries  int
	WorkerConcurrency int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Address:   envutil.GetEnv("TEMPORAL_ADDRESS", "", log),
		Namespace: envutil.GetEnv("TEMPORAL_NAMESPACE", "videoguard", log),
		TaskQueue: envutil.GetEnv("TEMPORAL_TASK_QUEUE", "videoguard-moderation", log),

		ClientCertPath: envutil.GetEnv("TEMPORAL_CLIENT_CERT_PATH", "", log),
		ClientKeyPath:  envutil.GetEnv("TEMPORAL_CLIENT_KEY_PATH", "", log),
		ClientCAPath:   envutil.GetEnv("TEMPORAL_CLIENT_CA_PATH", "", log),

		DialTimeout:       seconds(envutil.GetEnvAsInt("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5, log)),
		DialMaxWait:       seconds(envutil.GetEnvAsInt("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60, log)),
		DialBackoff:       millis(envutil.GetEnvAsInt("TEMPORAL_DIAL_BACKOFF_MS", 250, log)),
		DialBackoffMax:    millis(envutil.GetEnvAsInt("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5000, log)),
		AutoRegister:      envutil.GetEnvAsBool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false, log),
		RetentionDays:     envutil.GetEnvAsInt("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7, log),
		MaxActivityTries:  envutil.GetEnvAsInt("TEMPORAL_MAX_ACTIVITY_ATTEMPTS", 10, log),
		WorkerConcurrency: envutil.GetEnvAsInt("WORKER_CONCURRENCY", 4, log),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) hasTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func seconds(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Second
}

func millis(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Millisecond
}
