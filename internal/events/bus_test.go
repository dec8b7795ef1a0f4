package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/events"
)

type capturePublisher struct {
	events []events.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, ev events.Event) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestEmitDispatchesInOrder(t *testing.T) {
	relay := &capturePublisher{}
	bus := &events.Bus{Relay: relay, Logger: zerolog.Nop()}

	var got []string
	bus.Subscribe(events.TopicZonesUpdated, func(_ context.Context, ev events.Event) error {
		got = append(got, "first:"+ev.Topic)
		return nil
	})
	bus.Subscribe(events.TopicZonesUpdated, func(_ context.Context, ev events.Event) error {
		got = append(got, "second:"+ev.Topic)
		return nil
	})
	bus.Subscribe(events.TopicStoreUpdated, func(context.Context, events.Event) error {
		got = append(got, "other")
		return nil
	})

	ev, err := bus.Emit(context.Background(), events.TopicZonesUpdated, map[string]any{"count": 3})
	require.NoError(t, err)
	require.Equal(t, []string{"first:config.zones.updated", "second:config.zones.updated"}, got)
	require.JSONEq(t, `{"count":3}`, string(ev.Payload))
	require.Len(t, relay.events, 1)
	require.Equal(t, ev.ID, relay.events[0].ID)
	require.Equal(t, bus.Origin(), ev.Origin)

	var decoded struct{ Count int }
	require.NoError(t, ev.Decode(&decoded))
	require.Equal(t, 3, decoded.Count)
}

func TestUnsubscribe(t *testing.T) {
	bus := &events.Bus{}
	calls := 0
	stop := bus.Subscribe(events.TopicCouponsUpdated, func(context.Context, events.Event) error {
		calls++
		return nil
	})
	_, err := bus.Emit(context.Background(), events.TopicCouponsUpdated, nil)
	require.NoError(t, err)
	stop()
	_, err = bus.Emit(context.Background(), events.TopicCouponsUpdated, nil)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestEmitJoinsSubscriberErrors(t *testing.T) {
	boom := errors.New("boom")
	bus := &events.Bus{Relay: &capturePublisher{err: errors.New("relay down")}}
	delivered := false
	bus.Subscribe(events.TopicStoreUpdated, func(context.Context, events.Event) error { return boom })
	bus.Subscribe(events.TopicStoreUpdated, func(context.Context, events.Event) error {
		delivered = true
		return nil
	})
	_, err := bus.Emit(context.Background(), events.TopicStoreUpdated, "{}")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "relay down")
	require.True(t, delivered)
}

func TestEmitRejectsBadInput(t *testing.T) {
	bus := &events.Bus{}
	_, err := bus.Emit(context.Background(), " ", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicStoreUpdated, "not json")
	require.Error(t, err)
}

func TestRedisRelayCrossInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	relayA := &events.RedisRelay{R: newClient()}
	relayB := &events.RedisRelay{R: newClient()}
	busA := &events.Bus{Relay: relayA}
	busB := &events.Bus{Relay: relayB}

	var mu sync.Mutex
	var seenA, seenB []string
	busA.Subscribe(events.TopicSurchargeUpdated, func(_ context.Context, ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seenA = append(seenA, ev.ID)
		return nil
	})
	busB.Subscribe(events.TopicSurchargeUpdated, func(_ context.Context, ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seenB = append(seenB, ev.ID)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	readyA, readyB := make(chan struct{}), make(chan struct{})
	go func() { _ = relayA.Run(ctx, busA, readyA) }()
	go func() { _ = relayB.Run(ctx, busB, readyB) }()
	<-readyA
	<-readyB

	ev, err := busA.Emit(ctx, events.TopicSurchargeUpdated, map[string]int{"defaultSurcharge": 10})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seenB) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{ev.ID}, seenA)
	require.Equal(t, []string{ev.ID}, seenB)
}
