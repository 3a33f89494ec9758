package event

import (
	"context"
	"sync/atomic"
)

// Handler receives published values. Git notifications arrive as Envelope;
// typed publishers send Event[T].
type Handler interface {
	Handle(ctx context.Context, ev any) error
}

// HandlerFunc lets a plain function act as a Handler.
type HandlerFunc func(ctx context.Context, ev any) error

func (f HandlerFunc) Handle(ctx context.Context, ev any) error {
	return f(ctx, ev)
}

// FilterFunc decides per value whether a subscription sees it.
type FilterFunc func(ev any) bool

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	ID() string
	Topic() Topic
	IsActive() bool
	// Cancel stops delivery. It cannot be undone.
	Cancel()
}

// SubscriptionConfig holds per-subscription delivery settings.
type SubscriptionConfig struct {
	Filter FilterFunc
	// Once cancels after the first delivery that returns no error.
	Once bool
}

// SubscriptionOption adjusts a SubscriptionConfig.
type SubscriptionOption func(*SubscriptionConfig)

// WithFilter only delivers values accepted by f.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) { c.Filter = f }
}

// WithOnce makes the subscription single-shot.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) { c.Once = true }
}

type subscription struct {
	id      string
	pattern Topic
	handler Handler
	cfg     SubscriptionConfig
	stopped atomic.Bool
}

func newSubscription(id string, t Topic, h Handler, opts ...SubscriptionOption) *subscription {
	s := &subscription{id: id, pattern: t, handler: h}
	for _, opt := range opts {
		opt(&s.cfg)
	}
	return s
}

func (s *subscription) ID() string     { return s.id }
func (s *subscription) Topic() Topic   { return s.pattern }
func (s *subscription) IsActive() bool { return !s.stopped.Load() }
func (s *subscription) Cancel()        { s.stopped.Store(true) }

func (s *subscription) accepts(ev any) bool {
	if s.stopped.Load() {
		return false
	}
	return s.cfg.Filter == nil || s.cfg.Filter(ev)
}
