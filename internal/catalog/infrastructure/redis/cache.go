package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/shophub/internal/catalog/application"
	"github.com/dmehra2102/shophub/internal/catalog/domain"
)

const productsKey = "catalog:products"

type Cache struct {
	client  redis.Cmdable
	baseTTL time.Duration
}

func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{client: client, baseTTL: ttl}
}

func (c *Cache) Products(ctx context.Context) ([]domain.Summary, error) {
	data, err := c.client.Get(ctx, productsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, application.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var ps []domain.Summary
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("unmarshal products failed: %w", err)
	}
	return ps, nil
}

// SetProducts stores the listing with up to 20% TTL jitter.
func (c *Cache) SetProducts(ctx context.Context, ps []domain.Summary) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("marshal products failed: %w", err)
	}

	ttl := c.baseTTL
	if spread := int64(c.baseTTL / 5); spread > 0 {
		ttl += time.Duration(rand.Int64N(spread))
	}
	if err := c.client.Set(ctx, productsKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, productsKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
