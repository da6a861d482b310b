package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/trainer-bot/pkg/redis"
)

func newTestChecker() *Checker {
	return NewChecker(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCheckerReportsEachComponent(t *testing.T) {
	checker := newTestChecker()
	checker.AddCheck("ok", CheckFunc(func(context.Context) error { return nil }))
	checker.AddCheck("broken", CheckFunc(func(context.Context) error { return errors.New("connection refused") }))
	checker.AddCheck("", CheckFunc(func(context.Context) error { return nil }))
	checker.AddCheck("nil", nil)

	results := checker.Check(context.Background())

	assert.Equal(t, map[string]string{"ok": "OK", "broken": "connection refused"}, results)
	assert.Equal(t, []string{"broken", "ok"}, checker.Names())
	assert.EqualError(t, checker.Ready(context.Background()), "broken: connection refused")
}

func TestCheckerRedisPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.Wrap(context.Background(), goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	checker := newTestChecker()
	checker.AddCheck("redis", PingCheck(client))
	require.NoError(t, checker.Ready(context.Background()))

	mr.Close()
	assert.Error(t, checker.Ready(context.Background()))
}

func TestTelegramCheckerWithoutBot(t *testing.T) {
	assert.Error(t, NewTelegramChecker(nil).HealthCheck(context.Background()))
	assert.Error(t, PingCheck(nil).HealthCheck(context.Background()))
}
