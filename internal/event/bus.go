package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Stats contains event bus statistics.
type Stats struct {
	// EventsPublished is the total number of events published.
	EventsPublished uint64

	// EventsDelivered is the number of successful handler executions.
	EventsDelivered uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// ActiveSubscribers is the current number of subscriptions.
	ActiveSubscribers int
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(logger *zap.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bus delivers events synchronously to every subscription whose pattern
// matches the event topic, in subscription order. A failing or panicking
// handler does not stop delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	closed atomic.Bool
	logger *zap.Logger

	eventsPublished atomic.Uint64
	eventsDelivered atomic.Uint64
	handlerErrors   atomic.Uint64
	handlerPanics   atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers event to the matching handlers. event must implement
// TopicProvider (Event[T] and Envelope do). Handler errors are collected and
// returned together after every handler ran.
func (b *Bus) Publish(ctx context.Context, event any) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	tp, ok := event.(TopicProvider)
	if !ok || tp.EventTopic() == "" {
		return ErrInvalidEvent
	}
	eventTopic := tp.EventTopic()

	b.eventsPublished.Add(1)

	var result *multierror.Error
	for _, sub := range b.match(eventTopic) {
		if !sub.accepts(event) {
			continue
		}

		if err := b.deliver(ctx, sub, eventTopic, event); err != nil {
			result = multierror.Append(result, err)
			continue
		}

		b.eventsDelivered.Add(1)
		if sub.cfg.Once {
			sub.Cancel()
			b.remove(sub.id)
		}
	}

	return result.ErrorOrNil()
}

func (b *Bus) deliver(ctx context.Context, sub *subscription, eventTopic Topic, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = &PanicError{SubscriptionID: sub.id, Topic: eventTopic, Value: r}
			b.logger.Error("Event handler panicked",
				zap.String("topic", eventTopic.String()),
				zap.String("subscription", sub.id),
				zap.Any("panic", r))
		}
	}()

	if err = sub.handler.Handle(ctx, event); err != nil {
		b.handlerErrors.Add(1)
		b.logger.Warn("Event handler failed",
			zap.String("topic", eventTopic.String()),
			zap.String("subscription", sub.id),
			zap.Error(err))
	}
	return err
}

// match returns a snapshot of the subscriptions matching eventTopic, so
// handlers may subscribe or unsubscribe while being called.
func (b *Bus) match(eventTopic Topic) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []*subscription
	for _, sub := range b.subs {
		if eventTopic.Matches(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// Subscribe creates a new subscription for the given topic pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(uuid.NewString(), pattern, handler, opts...)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *Bus) SubscribeFunc(pattern Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	sub.Cancel()
	if !b.remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *Bus) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Close cancels every subscription. Further publishes fail with ErrBusClosed.
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.Cancel()
	}
	b.subs = nil
	return nil
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}
