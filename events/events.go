// Package events publishes pool changes to downstream systems.
//
// Delivery is out of this module's hands: a Publisher hands an Event to
// whatever carries it. LogPublisher writes structured records, Recorder keeps
// events in memory for tests.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topic groups events by the record they describe.
type Topic string

const (
	TopicPool          Topic = "pooling"
	TopicPoolDateRange Topic = "pooling_date_range"
)

// Action is what happened to the record.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Subscriber identifies the tenant an event belongs to.
type Subscriber struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Event is one downstream notification.
type Event struct {
	ID         string     `json:"id"`
	Topic      Topic      `json:"topic"`
	Action     Action     `json:"action"`
	Subscriber Subscriber `json:"subscriber"`
	Payload    any        `json:"payload"`
	At         time.Time  `json:"at"`
}

// New stamps an event with a fresh ID.
func New(topic Topic, action Action, subscriber Subscriber, payload any, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		Action:     action,
		Subscriber: subscriber,
		Payload:    payload,
		At:         at.UTC(),
	}
}

// Publisher hands events to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// =============================================================================
// LOG PUBLISHER
// =============================================================================

// LogPublisher writes each event as a structured log record.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "event published",
		"event_id", event.ID,
		"topic", string(event.Topic),
		"action", string(event.Action),
		"subscriber_id", event.Subscriber.ID,
		"payload", event.Payload,
	)
	return nil
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByTopic filters recorded events.
func (r *Recorder) ByTopic(topic Topic) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
