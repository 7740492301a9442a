package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shophub/internal/notification/application"
	"github.com/dmehra2102/shophub/pkg/events"
	"github.com/dmehra2102/shophub/pkg/idempotency"
	"github.com/dmehra2102/shophub/pkg/outbox"
	"github.com/dmehra2102/shophub/pkg/tracing"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Dedup interface {
	Seen(ctx context.Context, key string) (bool, error)
}

type Consumer struct {
	log    *slog.Logger
	reader MessageReader
	router *application.Router
	idem   Dedup
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafka.FirstOffset,
	})
}

// NewConsumer takes a nil idem when Redis is not configured.
func NewConsumer(log *slog.Logger, reader MessageReader, router *application.Router, idem Dedup) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		router: router,
		idem:   idem,
		tracer: otel.Tracer("notification-consumer"),
	}
}

// Run consumes until ctx is cancelled. Every message is committed once
// handled, including ones whose handler failed.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				c.log.Info("consumer stopping")
				return nil
			}
			return err
		}

		if c.duplicate(ctx, msg) {
			c.commit(ctx, msg)
			continue
		}
		c.handle(ctx, msg)
		c.commit(ctx, msg)
	}
}

func (c *Consumer) duplicate(ctx context.Context, msg kafka.Message) bool {
	if c.idem == nil {
		return false
	}
	key := idempotency.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Warn("idempotency check failed, processing anyway", "key", key, "err", err)
		return false
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
	}
	return seen
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeEvent")
	defer span.End()

	ev, err := events.Parse(msg.Value)
	if err != nil {
		c.log.Error("unmarshal failed", "offset", msg.Offset, "err", err)
		return
	}
	if ev.Name == "" {
		ev.Name = tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader)
	}
	ev.Key = string(msg.Key)
	span.SetAttributes(attribute.String("event.name", ev.Name))

	result, handled, err := c.router.Dispatch(msgCtx, ev)
	switch {
	case err != nil:
		span.RecordError(err)
		c.log.Error("event handler failed", "event", ev.Name, "event_id", ev.ID, "err", err)
	case !handled:
		c.log.Info("event ignored", "event", ev.Name, "event_id", ev.ID)
	default:
		c.log.Info("event processed", "event", ev.Name, "event_id", ev.ID, "result", result)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("commit failed", "offset", msg.Offset, "err", err)
	}
}
