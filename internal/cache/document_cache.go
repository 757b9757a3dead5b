package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyDocument = "invoice:document:%s:%s:%d"

// DocumentCache keeps rendered invoice documents in redis, snappy
// compressed. A nil *DocumentCache is a valid, always-missing cache.
type DocumentCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewDocumentCache(client *redis.Client, log *zap.Logger) *DocumentCache {
	if client == nil {
		return nil
	}
	return &DocumentCache{client: client, log: log.Named("cache.document")}
}

// DocumentKey identifies a document revision. The invoice's updated_at is
// part of the key so any mutation invalidates earlier renders.
func DocumentKey(invoiceID, format string, updatedAt time.Time) string {
	return fmt.Sprintf(keyDocument, invoiceID, format, updatedAt.UTC().UnixNano())
}

func (c *DocumentCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || key == "" {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("document cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	body, err := snappy.Decode(nil, raw)
	if err != nil {
		c.log.Warn("document cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return body, true
}

func (c *DocumentCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if c == nil || key == "" || ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, key, snappy.Encode(nil, body), ttl).Err(); err != nil {
		c.log.Warn("document cache write failed", zap.String("key", key), zap.Error(err))
	}
}
