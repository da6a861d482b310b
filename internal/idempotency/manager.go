// Package idempotency makes an operation run at most once per key within a TTL.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

const (
	defaultLockTTL = 5 * time.Minute
	pollInterval   = 100 * time.Millisecond
)

type Operation func(ctx context.Context) (interface{}, error)

type Result struct {
	Response  json.RawMessage
	FromCache bool
}

type Manager interface {
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn Operation,
	) (*Result, error)
}

type manager struct {
	store   Store
	lockTTL time.Duration
	log     *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		lockTTL: defaultLockTTL,
		log:     log,
	}
}

// Execute runs fn unless a completed record exists for key, in which case the stored response
// is returned with FromCache set. A concurrent holder of the key yields ErrRequestInProgress.
// A failed fn leaves no record so the operation can be retried.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		locked, err := m.store.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return nil, err
		}
		if locked {
			return m.run(ctx, key, ttl, fn)
		}

		record, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		switch {
		case record == nil:
			return nil, ErrRequestInProgress
		case record.Status == StatusCompleted:
			return &Result{Response: record.Response, FromCache: true}, nil
		case record.Status == StatusProcessing:
			return nil, ErrRequestInProgress
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if record, err := m.store.Get(ctx, key); err == nil && record != nil && record.Status == StatusCompleted {
		_ = m.store.ReleaseLock(ctx, key)
		return &Result{Response: record.Response, FromCache: true}, nil
	}

	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("idempotency lock not released", slog.String("key", key), slog.Any("error", err))
		}
	}()

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	responseBytes, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:   StatusCompleted,
		Response: responseBytes,
	}, ttl); err != nil {
		return nil, err
	}

	return &Result{
		Response:  responseBytes,
		FromCache: false,
	}, nil
}
