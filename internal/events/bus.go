// Package events is the typed publish/subscribe channel that propagates
// configuration changes and order notifications between components and,
// through the Redis relay, between API instances.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a published message.
type Event struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
	Origin     string          `json:"origin"`
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	return json.Unmarshal(e.Payload, dst)
}

// Handler reacts to an event. Handlers run synchronously in subscription order.
type Handler func(ctx context.Context, ev Event) error

// Publisher forwards locally emitted events to other instances.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Bus dispatches events to in-process subscribers and an optional relay.
type Bus struct {
	Relay  Publisher
	Logger zerolog.Logger
	Now    func() time.Time

	once   sync.Once
	origin string

	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
	order  map[string][]int
}

// Origin identifies this bus instance on the relay.
func (b *Bus) Origin() string {
	b.once.Do(func() { b.origin = uuid.NewString() })
	return b.origin
}

// Subscribe registers h for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[string]map[int]Handler)
		b.order = make(map[string][]int)
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h
	b.order[topic] = append(b.order[topic], id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
		ids := b.order[topic]
		for i, v := range ids {
			if v == id {
				b.order[topic] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
}

// Emit builds an event, dispatches it locally and forwards it to the relay.
// Subscriber and relay failures are joined into the returned error; the event
// is still delivered to every other subscriber.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) (Event, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev := Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		Payload:    encoded,
		OccurredAt: b.now(),
		Origin:     b.Origin(),
	}
	joined := b.Deliver(ctx, ev)
	if b.Relay != nil {
		if relayErr := b.Relay.Publish(ctx, ev); relayErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: relay: %w", relayErr))
		}
	}
	return ev, joined
}

// Deliver runs the local subscribers of ev.Topic.
func (b *Bus) Deliver(ctx context.Context, ev Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order[ev.Topic]))
	for _, id := range b.order[ev.Topic] {
		handlers = append(handlers, b.subs[ev.Topic][id])
	}
	b.mu.RUnlock()

	var joined error
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			b.Logger.Warn().Err(err).Str("topic", ev.Topic).Str("event_id", ev.ID).Msg("event subscriber failed")
			joined = errors.Join(joined, fmt.Errorf("events: subscriber: %w", err))
		}
	}
	return joined
}

func (b *Bus) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return validRaw(v)
	case json.RawMessage:
		return validRaw(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return []byte("{}"), nil
		}
		return validRaw([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func validRaw(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(v) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), v...), nil
}
