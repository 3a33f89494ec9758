package event

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"git.status.changed", "git.status.changed", true},
		{"git.status.changed", "git.*.changed", true},
		{"git.status.changed", "git.*", false},
		{"git.status.changed", "git.**", true},
		{"git", "git.**", true},
		{"git.status.changed", "**", true},
		{"git.status.changed", "**.changed", true},
		{"git.commit.created", "**.changed", false},
		{"git.status", "git.status.changed", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic)+"~"+string(tt.pattern), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.topic.Matches(tt.pattern))
		})
	}
}

func TestTopicIsValid(t *testing.T) {
	assert.True(t, Topic("git.status").IsValid())
	assert.False(t, Topic("").IsValid())
	assert.False(t, Topic("git..status").IsValid())
	assert.False(t, Topic(".git").IsValid())
}

func TestBusDeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var all, status []Topic
	_, err := bus.SubscribeFunc("git.**", func(_ context.Context, ev any) error {
		all = append(all, ev.(Envelope).Topic)
		return nil
	})
	require.NoError(t, err)
	_, err = bus.SubscribeFunc("git.status.*", func(_ context.Context, ev any) error {
		status = append(status, ev.(Envelope).Topic)
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, Envelope{Topic: "git.status.changed"}))
	require.NoError(t, bus.Publish(ctx, Envelope{Topic: "git.commit.created"}))

	assert.Equal(t, []Topic{"git.status.changed", "git.commit.created"}, all)
	assert.Equal(t, []Topic{"git.status.changed"}, status)

	stats := bus.Stats()
	assert.Equal(t, uint64(2), stats.EventsPublished)
	assert.Equal(t, uint64(3), stats.EventsDelivered)
	assert.Equal(t, 2, stats.ActiveSubscribers)
}

func TestBusTypedEvent(t *testing.T) {
	bus := NewBus()

	var got string
	_, err := bus.SubscribeFunc("demo.*", func(_ context.Context, ev any) error {
		got = ev.(Event[string]).Payload
		return nil
	})
	require.NoError(t, err)

	e := NewEvent[string]("demo.hello", "world", "test")
	require.NoError(t, bus.Publish(context.Background(), e))
	assert.Equal(t, "world", got)
	assert.NotEmpty(t, e.Metadata.ID)
}

func TestBusIsolatesFailures(t *testing.T) {
	bus := NewBus()

	var reached atomic.Int32
	_, _ = bus.SubscribeFunc("x", func(context.Context, any) error {
		return errors.New("boom")
	})
	_, _ = bus.SubscribeFunc("x", func(context.Context, any) error {
		panic("kaboom")
	})
	_, _ = bus.SubscribeFunc("x", func(context.Context, any) error {
		reached.Add(1)
		return nil
	})

	err := bus.Publish(context.Background(), Envelope{Topic: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.Equal(t, int32(1), reached.Load())

	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.HandlerErrors)
	assert.Equal(t, uint64(1), stats.HandlerPanics)
}

func TestBusOnceAndFilter(t *testing.T) {
	bus := NewBus()

	var once, filtered int
	_, _ = bus.SubscribeFunc("x", func(context.Context, any) error {
		once++
		return nil
	}, WithOnce())
	_, _ = bus.SubscribeFunc("x", func(context.Context, any) error {
		filtered++
		return nil
	}, WithFilter(func(ev any) bool {
		return ev.(Envelope).Data()["keep"] == true
	}))

	ctx := context.Background()
	_ = bus.Publish(ctx, Envelope{Topic: "x", Payload: map[string]any{"keep": true}})
	_ = bus.Publish(ctx, Envelope{Topic: "x", Payload: map[string]any{"keep": false}})

	assert.Equal(t, 1, once)
	assert.Equal(t, 1, filtered)
	assert.Equal(t, 1, bus.Stats().ActiveSubscribers)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	sub, err := bus.SubscribeFunc("x", func(context.Context, any) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Unsubscribe(sub))
	assert.False(t, sub.IsActive())
	assert.ErrorIs(t, bus.Unsubscribe(sub), ErrSubscriptionNotFound)

	_ = bus.Publish(context.Background(), Envelope{Topic: "x"})
	assert.Zero(t, calls)
}

func TestBusRejectsBadInput(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe("x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = bus.SubscribeFunc("a..b", func(context.Context, any) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidTopic)

	assert.ErrorIs(t, bus.Publish(context.Background(), "not an event"), ErrInvalidEvent)
	assert.ErrorIs(t, bus.Publish(context.Background(), Envelope{}), ErrInvalidEvent)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), Envelope{Topic: "x"}), ErrBusClosed)
}

func TestBusAdapter(t *testing.T) {
	bus := NewBus()
	adapter := NewBusAdapter(bus, "git", nil)

	var got Envelope
	_, err := bus.SubscribeFunc("git.**", func(_ context.Context, ev any) error {
		got = ev.(Envelope)
		return nil
	})
	require.NoError(t, err)

	adapter.Publish("git.status.changed", map[string]any{"action": "stage"})

	assert.Equal(t, Topic("git.status.changed"), got.Topic)
	assert.Equal(t, "stage", got.Data()["action"])
	assert.Equal(t, "git", got.Metadata.Source)
	assert.NotEmpty(t, got.Metadata.ID)

	require.NoError(t, adapter.Close())
	assert.ErrorIs(t, adapter.PublishSync("git.status.changed", nil), ErrAdapterClosed)
	assert.Same(t, bus, adapter.Bus())
}
