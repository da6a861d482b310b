package idempotency

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps records in process memory. It is used when Redis is disabled.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a store whose expired entries are purged every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *MemoryStore) Lock(_ context.Context, key string, lockTTL time.Duration) (bool, error) {
	// Add fails when the key is present and not expired
	if err := s.cache.Add(lockKey(key), struct{}{}, lockTTL); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	value, ok := s.cache.Get(recordKey(key))
	if !ok {
		return nil, nil
	}
	record := value.(Record)
	return &record, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}
	s.cache.Set(recordKey(key), *record, ttl)
	return nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, key string) error {
	s.cache.Delete(lockKey(key))
	return nil
}

// Len reports the number of live entries, locks included.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
