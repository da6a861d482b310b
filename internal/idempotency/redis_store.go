package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as JSON strings so a single SET carries value and expiry.
type RedisStore struct {
	client redis.UniversalClient
	log    *slog.Logger
}

// storedRecord is the wire form of Record.
type storedRecord struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

func NewRedisStore(client redis.UniversalClient, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, lockKey(key), time.Now().UTC().Format(time.RFC3339), lockTTL).Result()
	if err != nil {
		s.log.ErrorContext(ctx, "failed to acquire update lock", slog.String("key", key), slog.Any("error", err))
		return false, err
	}
	return acquired, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.ErrorContext(ctx, "failed to fetch update record", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		// A record we cannot read is treated as absent; the update runs again.
		s.log.WarnContext(ctx, "corrupt update record", slog.String("key", key), slog.Any("error", err))
		return nil, nil
	}
	return &Record{Status: stored.Status, Response: stored.Response}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	raw, err := json.Marshal(storedRecord{Status: record.Status, Response: record.Response})
	if err != nil {
		return fmt.Errorf("encode update record: %w", err)
	}
	if err := s.client.Set(ctx, recordKey(key), raw, ttl).Err(); err != nil {
		s.log.ErrorContext(ctx, "failed to store update record", slog.String("key", key), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockKey(key)).Err(); err != nil {
		s.log.ErrorContext(ctx, "failed to release update lock", slog.String("key", key), slog.Any("error", err))
		return err
	}
	return nil
}
