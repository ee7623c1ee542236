package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found, using environment", "environment", val)
	}
	return strings.TrimSpace(val)
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	raw, ok := lookup(key)
	if !ok {
		debugDefault(log, key, defaultVal)
		return defaultVal
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		debugUnparsable(log, key, raw, defaultVal, err)
		return defaultVal
	}
	return i
}

func GetEnvAsFloat(key string, defaultVal float64, log *logger.Logger) float64 {
	raw, ok := lookup(key)
	if !ok {
		debugDefault(log, key, defaultVal)
		return defaultVal
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		debugUnparsable(log, key, raw, defaultVal, err)
		return defaultVal
	}
	return f
}

func GetEnvAsBool(key string, defaultVal bool, log *logger.Logger) bool {
	raw, ok := lookup(key)
	if !ok {
		debugDefault(log, key, defaultVal)
		return defaultVal
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		debugUnparsable(log, key, raw, defaultVal, nil)
		return defaultVal
	}
}

// GetEnvAsList splits a comma separated value, trimming and lower-casing entries.
func GetEnvAsList(key string, log *logger.Logger) []string {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if log != nil {
		log.Debug("Environment list found", "env_var", key, "count", len(out))
	}
	return out
}

// WithPrefix returns every variable starting with prefix, keyed by the remainder.
func WithPrefix(prefix string) map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		out[strings.TrimPrefix(k, prefix)] = strings.TrimSpace(v)
	}
	return out
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func debugDefault(log *logger.Logger, key string, def interface{}) {
	if log != nil {
		log.Debug("Environment variable not found, using default", "env_var", key, "default", def)
	}
}

func debugUnparsable(log *logger.Logger, key, raw string, def interface{}, err error) {
	if log != nil {
		log.Debug("Environment variable could not be parsed, using default", "env_var", key, "providedVal", raw, "defaultVal", def, "error", err)
	}
}
