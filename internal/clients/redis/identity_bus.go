package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taskhive/taskhive-backend/internal/platform/envutil"
	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// IdentityBus fans identity events out across instances. The session
// service publishes on login/logout and forwards inbound events to its
// local subscribers.
type IdentityBus interface {
	Publish(ctx context.Context, event types.IdentityEvent) error
	StartForwarder(ctx context.Context, onEvent func(types.IdentityEvent)) error
	Close() error
}

type identityBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewIdentityBus(log *logger.Logger, rdb *goredis.Client) (IdentityBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	ch := strings.TrimSpace(envutil.String("REDIS_IDENTITY_CHANNEL", "identity"))
	return &identityBus{
		log:     log.With("service", "RedisIdentityBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *identityBus) Publish(ctx context.Context, event types.IdentityEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal identity event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *identityBus) StartForwarder(ctx context.Context, onEvent func(types.IdentityEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %q: %w", b.channel, err)
	}
	go func() {
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event types.IdentityEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Warn("Dropping malformed identity event", "error", err)
					continue
				}
				onEvent(event)
			}
		}
	}()
	return nil
}

func (b *identityBus) Close() error {
	return b.rdb.Close()
}
