package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// BusAdapter exposes a Bus through the map-based publisher interface used by
// the git layer: Publish(eventType string, data map[string]any).
type BusAdapter struct {
	bus    *Bus
	source string
	logger *zap.Logger
	closed atomic.Bool
}

// NewBusAdapter creates a new adapter wrapping the given bus.
// The source parameter identifies the origin of events (e.g., "git").
func NewBusAdapter(bus *Bus, source string, logger *zap.Logger) *BusAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BusAdapter{bus: bus, source: source, logger: logger}
}

// Publish wraps data in an Envelope and delivers it. Delivery errors are
// logged, never returned, since publishers do not act on them.
func (a *BusAdapter) Publish(eventType string, data map[string]any) {
	if err := a.PublishSync(eventType, data); err != nil {
		a.logger.Debug("Event delivery failed",
			zap.String("topic", eventType),
			zap.Error(err))
	}
}

// PublishSync is Publish with the delivery error returned.
func (a *BusAdapter) PublishSync(eventType string, data map[string]any) error {
	if a.closed.Load() {
		return ErrAdapterClosed
	}

	env := Envelope{
		Topic:    Topic(eventType),
		Payload:  data,
		Metadata: NewMetadata(a.source),
	}
	return a.bus.Publish(context.Background(), env)
}

// Close stops the adapter from publishing. The bus is left open.
func (a *BusAdapter) Close() error {
	a.closed.Store(true)
	return nil
}

// Bus returns the underlying event bus.
func (a *BusAdapter) Bus() *Bus {
	return a.bus
}
