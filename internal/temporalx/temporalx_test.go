package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Errorf("unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Errorf("permission denied should not retry")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Errorf("deadline exceeded should retry")
	}
	if isRetryableRPC(errors.New("plain")) || isRetryableRPC(nil) {
		t.Errorf("plain and nil errors should not retry")
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(nil, Config{})
	if err != nil || c != nil {
		t.Fatalf("expected nil client and nil error, got %v %v", c, err)
	}
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	if _, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("expected error without cert/key")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_DIAL_MAX_WAIT_SECONDS", "3")
	cfg := LoadConfig(nil)
	if cfg.Enabled() {
		t.Fatalf("config without address should be disabled")
	}
	if cfg.Namespace != "videoguard" || cfg.TaskQueue != "videoguard-moderation" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DialMaxWait != 3*time.Second {
		t.Fatalf("DialMaxWait=%v", cfg.DialMaxWait)
	}
}
