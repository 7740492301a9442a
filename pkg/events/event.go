// Package events holds the canonical domain event that every transport
// (in-process, outbox/Kafka, HTTP event bus, inbound webhooks) agrees on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated    = "order.created"
	FeedbackCreated = "feedback.created"
)

// Event is the normalized envelope. Key is the partitioning key (the order or
// feedback id) and never leaves the process inside the JSON body.
type Event struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Key       string          `json:"-"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"ts,omitempty"`
}

// Publisher is the single outbound dispatch capability. Exactly one
// implementation is wired per process.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// New marshals data and stamps a fresh id and millisecond timestamp.
func New(name, key string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Key:       key,
		Data:      raw,
		Timestamp: time.Now().UTC().UnixMilli(),
	}, nil
}

// Aggregate is the name prefix before the first dot ("order" for "order.created").
func (e Event) Aggregate() string {
	if i := strings.IndexByte(e.Name, '.'); i > 0 {
		return e.Name[:i]
	}
	return e.Name
}

// Decode unmarshals the event data into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %q has no data", e.Name)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %q data: %w", e.Name, err)
	}
	return nil
}
