package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxRecordTTL bounds how long any record may live; keys without expiry or beyond it are stale.
const maxRecordTTL = 25 * time.Hour

// Cleaner removes idempotency keys that lost their expiry.
type Cleaner struct {
	client redis.UniversalClient
	log    *slog.Logger
}

func NewCleaner(client redis.UniversalClient, log *slog.Logger) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client: client,
		log:    log,
	}
}

// Cleanup scans the idempotency keyspace once and reports how many keys it deleted.
func (c *Cleaner) Cleanup(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}

	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			c.log.Error("idempotency cleaner scan failed", slog.Any("error", err))
			return removed, err
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.log.Warn("failed to get key ttl", slog.String("key", key), slog.Any("error", err))
				continue
			}

			if ttl == -1 || ttl > maxRecordTTL {
				if err := c.client.Del(ctx, key).Err(); err != nil {
					c.log.Warn("failed to delete stale idempotency key", slog.String("key", key), slog.Any("error", err))
					continue
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if removed > 0 {
		c.log.Info("stale idempotency keys removed", slog.Int("count", removed))
	}
	return removed, nil
}
