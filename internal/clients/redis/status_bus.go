package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

const DefaultStatusChannel = "videoguard:status"

type StatusBus interface {
	PublishStatus(ctx context.Context, ev videos.StatusEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev videos.StatusEvent)) error
	Close() error
}

type statusBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewStatusBus(log *logger.Logger, addr, channel string) (StatusBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStatusBusFromClient(log, rdb, channel), nil
}

// NewStatusBusFromClient wraps an existing client; the caller keeps ownership of rdb until Close.
func NewStatusBusFromClient(log *logger.Logger, rdb goredis.UniversalClient, channel string) StatusBus {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultStatusChannel
	}
	return &statusBus{
		log:     log.With("service", "RedisStatusBus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *statusBus) PublishStatus(ctx context.Context, ev videos.StatusEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *statusBus) StartForwarder(ctx context.Context, onEvent func(ev videos.StatusEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				ev, err := decodeStatusEvent(m.Payload)
				if err != nil {
					b.log.Warn("bad redis status payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *statusBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func decodeStatusEvent(payload string) (videos.StatusEvent, error) {
	var ev videos.StatusEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.State == "" {
		return ev, fmt.Errorf("status event without state")
	}
	return ev, nil
}
