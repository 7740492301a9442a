package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmehra2102/shophub/pkg/events"
	"github.com/dmehra2102/shophub/pkg/tracing"
)

// Appender persists a new pending outbox row.
type Appender interface {
	Append(ctx context.Context, e Event) error
}

// Publisher is the queued events.Publisher: events become outbox rows and the
// Relay ships them to the broker. Append runs outside any caller transaction;
// order checkout writes its row through the checkout transaction instead.
type Publisher struct {
	store   Appender
	headers map[string]string
}

func NewPublisher(store Appender, source string) *Publisher {
	return &Publisher{store: store, headers: map[string]string{"source": source}}
}

func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	row, err := NewRow(ctx, ev, p.headers)
	if err != nil {
		return err
	}
	return p.store.Append(ctx, row)
}

// NewRow is the pending outbox row for ev. Callers that own a transaction
// append it themselves so the row commits with their writes.
func NewRow(ctx context.Context, ev events.Event, headers map[string]string) (Event, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Event{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return Event{
		AggregateType: ev.Aggregate(),
		AggregateID:   ev.Key,
		Type:          ev.Name,
		Payload:       payload,
		Headers:       headers,
		Traceparent:   tracing.Traceparent(ctx),
		Status:        StatusPending,
	}, nil
}
