package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestScheduler_EveryFiresOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	s := NewScheduler(clock, testLogger())

	ran := make(chan struct{}, 10)
	var runs atomic.Int32
	require.NoError(t, s.Every("sweep", time.Minute, func(context.Context) error {
		runs.Add(1)
		ran <- struct{}{}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)
	assert.Zero(t, runs.Load())

	clock.Advance(30 * time.Second)
	waitFor(t, ran)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	waitFor(t, ran)
	assert.Equal(t, int32(2), runs.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_ErrorsAndPanicsKeepTicking(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, testLogger())

	ran := make(chan struct{}, 10)
	var runs atomic.Int32
	require.NoError(t, s.Every("flaky", time.Second, func(context.Context) error {
		defer func() { ran <- struct{}{} }()
		switch runs.Add(1) {
		case 1:
			return errors.New("store unavailable")
		case 2:
			panic("boom")
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
		waitFor(t, ran)
	}
	assert.Equal(t, int32(3), runs.Load())
}

func TestScheduler_ShutdownWaitsForRunningJob(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, testLogger(), WithTickTimeout(5*time.Second))

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var ctxErr atomic.Value
	require.NoError(t, s.Every("slow", time.Second, func(ctx context.Context) error {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		finished.Store(true)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	<-started

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while a job was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	assert.True(t, finished.Load())
	assert.Nil(t, ctxErr.Load(), "job context must survive shutdown")
}

func TestScheduler_Registration(t *testing.T) {
	s := NewScheduler(clockwork.NewFakeClock(), testLogger())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Every("a", time.Minute, noop))
	assert.Error(t, s.Every("a", time.Minute, noop))
	assert.Error(t, s.Every("fast", time.Millisecond, noop))
	assert.Error(t, s.Every("nil", time.Minute, nil))
	assert.Error(t, s.Cron("bad", "not a cron", noop))
	require.NoError(t, s.Cron("digest", "0 8 * * *", noop))
	assert.Equal(t, []string{"a", "digest"}, s.Jobs())

	assert.Error(t, s.RunNow(context.Background(), "missing"))
	assert.NoError(t, s.RunNow(context.Background(), "a"))
}

func TestScheduler_CronUsesLocation(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC))
	s := NewScheduler(clock, testLogger(), WithLocation(moscow))

	ran := make(chan struct{}, 1)
	require.NoError(t, s.Cron("digest", "0 8 * * *", func(context.Context) error {
		ran <- struct{}{}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	clock.BlockUntil(1)
	clock.Advance(59 * time.Minute)
	select {
	case <-ran:
		t.Fatal("fired early")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Minute)
	waitFor(t, ran)
}
