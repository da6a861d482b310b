package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Cleaner removes rate-limit entries older than maxAge from Redis and memory.
type Cleaner struct {
	redisClient redis.UniversalClient
	memory      *MemoryLimiter
	clock       clockwork.Clock
	maxAge      time.Duration
	log         *slog.Logger
}

// NewCleaner constructs a Cleaner. Either backend may be nil.
func NewCleaner(client redis.UniversalClient, memory *MemoryLimiter, clock clockwork.Clock, maxAge time.Duration, log *slog.Logger) *Cleaner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		redisClient: client,
		memory:      memory,
		clock:       clock,
		maxAge:      maxAge,
		log:         log,
	}
}

// Cleanup runs one pass and reports how many keys or buckets were removed.
func (c *Cleaner) Cleanup(ctx context.Context) (int, error) {
	cleaned := 0
	if c.memory != nil {
		cleaned += c.memory.Cleanup(c.maxAge)
	}

	if c.redisClient != nil {
		removed, err := c.cleanupRedis(ctx)
		cleaned += removed
		if err != nil {
			return cleaned, err
		}
	}

	if cleaned > 0 {
		c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", cleaned))
	}
	return cleaned, nil
}

func (c *Cleaner) cleanupRedis(ctx context.Context) (int, error) {
	const scanCount = 100

	cutoff := float64(c.clock.Now().Add(-c.maxAge).UnixNano()) / float64(time.Millisecond)

	var (
		cursor  uint64
		cleaned int
	)

	for {
		keys, nextCursor, err := c.redisClient.Scan(ctx, cursor, keyPrefix+"*", scanCount).Result()
		if err != nil {
			c.log.Error("rate limit scan failed", slog.Any("error", err))
			return cleaned, err
		}

		for _, key := range keys {
			pipe := c.redisClient.TxPipeline()
			pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", cutoff))
			cardCmd := pipe.ZCard(ctx, key)
			if _, err := pipe.Exec(ctx); err != nil {
				c.log.Warn("cleanup pipeline failed", slog.String("key", key), slog.Any("error", err))
				continue
			}

			if cardCmd.Val() == 0 {
				if err := c.redisClient.Del(ctx, key).Err(); err != nil {
					c.log.Warn("failed to delete empty rate limit key", slog.String("key", key), slog.Any("error", err))
					continue
				}
				cleaned++
			}
		}

		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}

	return cleaned, nil
}
