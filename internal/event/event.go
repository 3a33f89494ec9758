package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a typed event. Events are immutable once created.
type Event[T any] struct {
	// Type is the hierarchical event type.
	Type Topic

	// Payload contains the event-specific data.
	Payload T

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the component that published the event.
	Source string
}

// NewMetadata returns metadata with a fresh ID and the current time.
func NewMetadata(source string) Metadata {
	return Metadata{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    source,
	}
}

// NewEvent creates a new event with the given type and payload.
func NewEvent[T any](eventType Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:     eventType,
		Payload:  payload,
		Metadata: NewMetadata(source),
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() Topic {
	return e.Type
}

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata {
	return e.Metadata
}

// TopicProvider is implemented by types that can provide their topic.
type TopicProvider interface {
	EventTopic() Topic
}

// Envelope wraps an untyped payload, typically the map published through a
// BusAdapter.
type Envelope struct {
	Topic    Topic
	Payload  any
	Metadata Metadata
}

// EventTopic returns the envelope topic.
func (e Envelope) EventTopic() Topic {
	return e.Topic
}

// EventMetadata returns the envelope metadata.
func (e Envelope) EventMetadata() Metadata {
	return e.Metadata
}

// Data returns the payload as a map, or nil when it is something else.
func (e Envelope) Data() map[string]any {
	data, _ := e.Payload.(map[string]any)
	return data
}
