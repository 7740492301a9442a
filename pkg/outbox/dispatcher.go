package outbox

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/shophub/pkg/tracing"
)

const (
	EventTypeHeader = "event_type"
	OutboxIDHeader  = "outbox_id"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher turns outbox rows into messages on a single topic, keyed by
// aggregate id so one order's events stay on one partition.
type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic}
}

// DispatchBatch writes the rows in one producer call. The returned slice has
// one entry per row, nil where the broker acknowledged the message.
func (d *Dispatcher) DispatchBatch(ctx context.Context, rows []Event) []error {
	msgs := make([]kafka.Message, len(rows))
	for i, e := range rows {
		msgs[i] = d.message(ctx, e)
	}

	errs := make([]error, len(rows))
	err := d.producer.WriteMessages(ctx, msgs...)
	var perMsg kafka.WriteErrors
	switch {
	case err == nil:
	case errors.As(err, &perMsg) && len(perMsg) == len(rows):
		copy(errs, perMsg)
	default:
		for i := range errs {
			errs[i] = err
		}
	}

	for i, e := range rows {
		if errs[i] != nil {
			d.log.Error("outbox dispatch failed", "outbox_id", e.ID, "event", e.Type, "err", errs[i])
			continue
		}
		d.log.Debug("outbox dispatched", "outbox_id", e.ID, "event", e.Type, "key", e.AggregateID)
	}
	return errs
}

func (d *Dispatcher) message(ctx context.Context, e Event) kafka.Message {
	headers := make([]kafka.Header, 0, len(e.Headers)+3)
	for k, v := range e.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers,
		kafka.Header{Key: EventTypeHeader, Value: []byte(e.Type)},
		kafka.Header{Key: OutboxIDHeader, Value: []byte(strconv.FormatInt(e.ID, 10))},
	)
	// The row keeps the trace of the checkout that wrote it; fall back to the
	// relay's own span.
	if e.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: tracing.TraceparentHeader, Value: []byte(e.Traceparent)})
	} else {
		headers = tracing.InjectKafkaHeaders(ctx, headers)
	}

	return kafka.Message{
		Topic:   d.topic,
		Key:     []byte(e.AggregateID),
		Value:   e.Payload,
		Headers: headers,
	}
}
