package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel shared by API instances.
const DefaultChannel = "tienda:events"

// RedisRelay mirrors bus events over Redis pub/sub.
type RedisRelay struct {
	R       *redis.Client
	Channel string
	Logger  zerolog.Logger
}

func (r *RedisRelay) channel() string {
	if r.Channel == "" {
		return DefaultChannel
	}
	return r.Channel
}

// Publish implements Publisher.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return r.R.Publish(ctx, r.channel(), data).Err()
}

// Run delivers events published by other instances to bus until ctx is
// cancelled. Events carrying the bus's own origin are skipped. ready, when
// non-nil, is closed once the subscription is active.
func (r *RedisRelay) Run(ctx context.Context, bus *Bus, ready chan<- struct{}) error {
	sub := r.R.Subscribe(ctx, r.channel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel(), err)
	}
	if ready != nil {
		close(ready)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.Logger.Warn().Err(err).Msg("discarding malformed relay event")
				continue
			}
			if ev.Origin == bus.Origin() {
				continue
			}
			_ = bus.Deliver(ctx, ev)
		}
	}
}
