package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopforge/storefront/internal/entity"
)

// ProductCache caches product summaries in Redis. Entries carry a short TTL
// and are invalidated explicitly after any committed transaction that touched
// the product's stock or rating, so a read never shows a rating the verified
// review set no longer supports for longer than one invalidation round-trip.
// Cache failures degrade to database reads and are only logged.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a ProductCache on the given Redis address.
func New(addr string, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func key(productID string) string {
	return "product:" + productID
}

func (c *ProductCache) Get(ctx context.Context, productID string) (*entity.Product, bool) {
	raw, err := c.client.Get(ctx, key(productID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Error("Cache read failed", "product_id", productID, "err", err)
		return nil, false
	}

	var p entity.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Error("Cache entry corrupt, dropping", "product_id", productID, "err", err)
		c.client.Del(ctx, key(productID))
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) Set(ctx context.Context, product *entity.Product) {
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(product.ID), raw, c.ttl).Err(); err != nil {
		slog.Error("Cache write failed", "product_id", product.ID, "err", err)
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, key(productID)).Err(); err != nil {
		slog.Error("Cache invalidation failed", "product_id", productID, "err", err)
	}
}

// Close releases the underlying Redis connection.
func (c *ProductCache) Close() error {
	return c.client.Close()
}
