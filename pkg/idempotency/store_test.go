package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Minute), mr
}

func TestSeen_FirstDeliveryThenDuplicate(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	key := Key("shophub.events", 0, 42)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSeen_ExpiresAfterTTL(t *testing.T) {
	s, mr := setup(t)
	ctx := context.Background()
	key := EventKey("order.created", "abc")

	_, err := s.Seen(ctx, key)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestForget(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	key := EventKey("feedback.created", "f1")

	_, err := s.Seen(ctx, key)
	require.NoError(t, err)
	require.NoError(t, s.Forget(ctx, key))

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSeen_RedisDown(t *testing.T) {
	s, mr := setup(t)
	mr.Close()

	_, err := s.Seen(context.Background(), "k")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "idem:t:3:7", Key("t", 3, 7))
	assert.Equal(t, "idem:event:order.created:x", EventKey("order.created", "x"))
}

func TestBegin_InFlightThenDone(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	key := EventKey("order.created", "evt-1")

	st, err := s.Begin(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)

	st, err = s.Begin(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateInFlight, st)

	require.NoError(t, s.Complete(ctx, key))
	st, err = s.Begin(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateDone, st)
}

func TestBegin_ProcessingMarkerExpiresEarly(t *testing.T) {
	s, mr := setup(t)
	ctx := context.Background()
	key := EventKey("order.created", "evt-2")

	_, err := s.Begin(ctx, key)
	require.NoError(t, err)
	mr.FastForward(time.Minute + time.Second)

	st, err := s.Begin(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}

func TestBegin_ForgetReleasesClaim(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	key := EventKey("order.created", "evt-3")

	_, err := s.Begin(ctx, key)
	require.NoError(t, err)
	require.NoError(t, s.Forget(ctx, key))

	st, err := s.Begin(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}
