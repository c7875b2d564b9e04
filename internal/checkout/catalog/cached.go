package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedCatalog is a read-through Redis cache in front of a Catalog.
// Stock reductions evict the product so the next read sees fresh stock.
type CachedCatalog struct {
	next   Catalog
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedCatalog(next Catalog, client redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, client: client, ttl: ttl, log: log}
}

func (c *CachedCatalog) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	key := productKey(productID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var p Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		c.log.Warn("dropping undecodable cached product", zap.Int64("product_id", productID))
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("product cache get failed", zap.Int64("product_id", productID), zap.Error(err))
	}

	return c.load(ctx, productID)
}

// Fresh returns a reader that always asks the catalog service and refreshes
// the cached entry with the answer. Checkout prices from it so it never
// sees an entry cached while the cart was being filled.
func (c *CachedCatalog) Fresh() ProductGetter {
	return freshReader{c}
}

type freshReader struct {
	c *CachedCatalog
}

func (f freshReader) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	return f.c.load(ctx, productID)
}

func (c *CachedCatalog) load(ctx context.Context, productID int64) (*Product, error) {
	p, err := c.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, productKey(productID), data, c.ttl).Err(); err != nil {
			c.log.Warn("product cache set failed", zap.Int64("product_id", productID), zap.Error(err))
		}
	}
	return p, nil
}

func (c *CachedCatalog) ReduceStock(ctx context.Context, productID int64, quantity int) error {
	err := c.next.ReduceStock(ctx, productID, quantity)
	if delErr := c.client.Del(ctx, productKey(productID)).Err(); delErr != nil {
		c.log.Warn("product cache invalidate failed", zap.Int64("product_id", productID), zap.Error(delErr))
	}
	return err
}

func productKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}
