package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Worker provides APIs to register handlers and control the background worker lifecycle.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run(ctx context.Context) error
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker constructs a Worker over the application's Redis connection.
func NewWorker(rdb redis.UniversalClient, concurrency int, log *slog.Logger) Worker {
	if concurrency <= 0 {
		concurrency = 2
	}

	server := asynq.NewServerFromRedisClient(rdb, asynq.Config{
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
			QueueLow:      1,
		},
		Concurrency:    concurrency,
		RetryDelayFunc: asynq.DefaultRetryDelayFunc,
		Logger:         asynqLogger{log: log},
	})

	return &worker{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}
}

// RegisterHandler wires a task type to the provided handler.
func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Run processes tasks until ctx is cancelled, then drains the server.
func (w *worker) Run(ctx context.Context) error {
	if w.log != nil {
		w.log.InfoContext(ctx, "jobs worker: starting processing loop")
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs worker: start: %w", err)
	}

	<-ctx.Done()

	if w.log != nil {
		w.log.Info("jobs worker: shutting down")
	}
	w.server.Shutdown()
	return nil
}

// asynqLogger routes asynq's internal logging into slog.
type asynqLogger struct {
	log *slog.Logger
}

func (l asynqLogger) logger() *slog.Logger {
	if l.log == nil {
		return slog.Default()
	}
	return l.log
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger().Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger().Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger().Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger().Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger().Error(fmt.Sprint(args...)) }
