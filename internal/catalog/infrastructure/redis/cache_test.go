package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shophub/internal/catalog/application"
	"github.com/dmehra2102/shophub/internal/catalog/domain"
)

func setupTestRedis(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCache_MissSetGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := cache.Products(ctx)
	assert.ErrorIs(t, err, application.ErrCacheMiss)

	in := []domain.Summary{domain.Summarize(domain.Product{ID: 1, Name: "Tee", Price: decimal.RequireFromString("10.00")}, 9, 2)}
	require.NoError(t, cache.SetProducts(ctx, in))

	ttl := mr.TTL(productsKey)
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, time.Minute+time.Minute/5)

	out, err := cache.Products(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Tee", out[0].Name)
	assert.True(t, out[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 4.5, out[0].Rating)
}

func TestCache_Expires(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetProducts(ctx, []domain.Summary{{}}))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Products(ctx)
	assert.ErrorIs(t, err, application.ErrCacheMiss)
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(productsKey, "{not json"))

	_, err := cache.Products(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrCacheMiss)
}

func TestCache_Invalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetProducts(ctx, []domain.Summary{{}}))
	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists(productsKey))
}
