package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Manager enqueues background tasks.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// ManagerOption configures NewManager.
type ManagerOption func(*manager)

// WithUniqueWindow drops a task whose type and payload match one enqueued within d.
// A repeated approval within the window then produces a single message.
func WithUniqueWindow(d time.Duration) ManagerOption {
	return func(m *manager) {
		m.uniqueFor = d
	}
}

type manager struct {
	client    *asynq.Client
	uniqueFor time.Duration
	log       *slog.Logger
}

// NewManager builds a Manager sharing the application's Redis connection.
func NewManager(rdb redis.UniversalClient, log *slog.Logger, opts ...ManagerOption) Manager {
	if log == nil {
		log = slog.Default()
	}

	m := &manager{
		client: asynq.NewClientFromRedisClient(rdb),
		log:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue submits task. A duplicate inside the unique window is reported as success with nil info.
func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.uniqueFor > 0 {
		opts = append([]asynq.Option{asynq.Unique(m.uniqueFor)}, opts...)
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		m.log.DebugContext(ctx, "jobs: duplicate task dropped", slog.String("task_type", task.Type()))
		return nil, nil
	case err != nil:
		m.log.ErrorContext(ctx, "jobs: enqueue failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		return nil, err
	}

	m.log.DebugContext(ctx, "jobs: task enqueued",
		slog.String("task_type", task.Type()),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)
	return info, nil
}

func (m *manager) Close() error {
	return m.client.Close()
}
