// Package idempotency absorbs at-least-once redelivery with a Redis SETNX
// marker per delivery key.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessingTTL bounds how long an in-flight marker blocks redelivery when
// the process handling it dies before Complete or Forget.
const ProcessingTTL = 2 * time.Minute

const (
	markProcessing = "processing"
	markDone       = "done"
)

// State is what Begin found for a key.
type State int

const (
	// StateNew means the caller now owns the key and must Complete or Forget it.
	StateNew State = iota
	// StateInFlight means another delivery of the key is still being handled.
	StateInFlight
	// StateDone means the key was handled successfully.
	StateDone
)

type Store struct {
	rdb           redis.Cmdable
	ttl           time.Duration
	processingTTL time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, processingTTL: min(ttl, ProcessingTTL)}
}

// Key identifies one Kafka delivery.
func Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// EventKey identifies one envelope by its producer-assigned id.
func EventKey(name, id string) string {
	return fmt.Sprintf("idem:event:%s:%s", name, id)
}

// Seen marks key and reports whether it was already marked.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency setnx %s: %w", key, err)
	}

	return !ok, nil
}

// Forget drops a marker so a failed delivery can be retried.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Begin claims key with a short-lived processing marker. Only a successful
// Complete turns it into a done marker that lasts the full TTL.
func (s *Store) Begin(ctx context.Context, key string) (State, error) {
	ok, err := s.rdb.SetNX(ctx, key, markProcessing, s.processingTTL).Result()
	if err != nil {
		return StateNew, fmt.Errorf("idempotency setnx %s: %w", key, err)
	}
	if ok {
		return StateNew, nil
	}

	v, err := s.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// Expired or forgotten between the two calls.
		return StateInFlight, nil
	case err != nil:
		return StateNew, fmt.Errorf("idempotency get %s: %w", key, err)
	case v == markDone:
		return StateDone, nil
	default:
		return StateInFlight, nil
	}
}

// Complete marks key as successfully handled.
func (s *Store) Complete(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, markDone, s.ttl).Err()
}
