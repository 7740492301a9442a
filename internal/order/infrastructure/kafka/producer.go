package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter is the outbox relay's producer. Messages carry their own topic,
// so the writer has none.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
