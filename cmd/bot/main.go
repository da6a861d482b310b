package main

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/Proton-105/trainer-bot/internal/bot"
	"github.com/Proton-105/trainer-bot/internal/bot/handlers"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/database"
	errors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/geocode"
	"github.com/Proton-105/trainer-bot/internal/health"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/idempotency"
	"github.com/Proton-105/trainer-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/trainer-bot/internal/jobs/handlers"
	"github.com/Proton-105/trainer-bot/internal/ledger"
	"github.com/Proton-105/trainer-bot/internal/lifecycle"
	"github.com/Proton-105/trainer-bot/internal/middleware"
	"github.com/Proton-105/trainer-bot/internal/notify"
	"github.com/Proton-105/trainer-bot/internal/ratelimit"
	"github.com/Proton-105/trainer-bot/internal/relationship"
	"github.com/Proton-105/trainer-bot/internal/reminder"
	"github.com/Proton-105/trainer-bot/internal/repository"
	"github.com/Proton-105/trainer-bot/internal/state"
	"github.com/Proton-105/trainer-bot/internal/trainer"
	"github.com/Proton-105/trainer-bot/pkg/config"
	"github.com/Proton-105/trainer-bot/pkg/graceful"
	"github.com/Proton-105/trainer-bot/pkg/logger"
	"github.com/Proton-105/trainer-bot/pkg/metrics"
	"github.com/Proton-105/trainer-bot/pkg/redis"
)

const (
	sentryFlushTimeout   = 2 * time.Second
	idempotencySweep     = 10 * time.Minute
	rateLimitSweep       = 5 * time.Minute
	stateMetricsInterval = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trainer bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      firstNonEmpty(cfg.Sentry.Environment, cfg.AppEnv),
			TracesSampleRate: cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(sentryFlushTimeout)
	}

	appLogger := logger.New(cfg.Logger, cfg.Sentry.Enabled)
	defer func() { _ = appLogger.Close() }()
	log := appLogger.Logger
	slog.SetDefault(log)

	config.Watch(v, log, func(next *config.Config) {
		appLogger.SetLevel(next.Logger.Level)
	})

	log.Info("starting trainer bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("database", cfg.Database.Driver),
		slog.Bool("redis", cfg.Redis.Enabled),
	)

	clock := clockwork.NewRealClock()
	loc := cfg.Bot.Location()
	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	shutdown.Register("database", func(context.Context) error { return db.Close() })

	if err := database.NewMigrator(db, log).Up(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}

	store := repository.NewStore(db, log)
	checker.AddCheck("database", health.PingCheck(store))

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			_ = db.Close()
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return rdb.Close() })
		checker.AddCheck("redis", health.PingCheck(rdb))
	}

	texts, err := i18n.Load(cfg.Bot.Language)
	if err != nil {
		return err
	}

	// conversation state
	var (
		stateStorage state.Storage
		fsm          state.StateMachine
	)
	if rdb != nil {
		stateStorage = state.NewRedisStorage(rdb.Client, cfg.State.TTL, log)
		fsm = state.NewStateMachine(stateStorage, log, rdb.Client)
	} else {
		stateStorage = state.NewMemoryStorage(clock)
		fsm = state.NewStateMachine(stateStorage, log, nil)
	}

	// update deduplication
	var idemStore idempotency.Store
	if rdb != nil {
		idemStore = idempotency.NewRedisStore(rdb.Client, log)
	} else {
		idemStore = idempotency.NewMemoryStore(cfg.Idempotency.TTL)
	}
	idemManager := idempotency.NewManager(idemStore, log)

	// per-chat rate limits, Redis first with an in-process fallback
	memoryLimiter := ratelimit.NewMemoryLimiter(clock, log)
	var limiter ratelimit.Limiter = memoryLimiter
	if rdb != nil {
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Client, clock, log), memoryLimiter, log)
	}
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), texts, clock, log)

	tb, err := bot.NewTelebot(cfg.Bot)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))

	direct := notify.NewTelegramNotifier(tb, notify.Options{
		Timeout:       cfg.Notify.Timeout,
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
	}, log)

	var (
		relationNotifier notify.Notifier = direct
		worker           jobs.Worker
	)
	if rdb != nil && cfg.Notify.Queue {
		manager := jobs.NewManager(rdb.Client, log, jobs.WithUniqueWindow(cfg.Notify.QueueUnique))
		shutdown.Register("jobs-manager", func(context.Context) error { return manager.Close() })
		relationNotifier = jobs.NewQueueNotifier(manager, "relationship")

		worker = jobs.NewWorker(rdb.Client, cfg.Notify.QueueConcurrency, log)
		worker.RegisterHandler(jobs.TaskTypeNotify, jobhandlers.NewNotifyHandler(direct, log))
	}

	defaultTexts := texts.Default()
	trainers := trainer.NewService(store, clock, log)
	relations := relationship.NewService(store, relationNotifier, defaultTexts, clock, log,
		relationship.WithRequestMarkup(func(clientID int64) any {
			return keyboard.BindingRequest(defaultTexts, clientID)
		}),
	)
	ledgerSvc := ledger.NewService(store, clock, loc, log)

	var geocoder geocode.Searcher
	if cfg.Geocode.Enabled {
		geocoder = geocode.NewClient(cfg.Geocode, nil, log)
	}

	b := bot.New(tb, *cfg, log, bot.Options{
		Handlers: handlers.Deps{
			Trainers:  trainers,
			Relations: relations,
			Ledger:    ledgerSvc,
			FSM:       fsm,
			Texts:     texts,
			Geocoder:  geocoder,
			Clock:     clock,
			Log:       log,
			PageSize:  cfg.Bot.PageSize,
		},
		Idempotency: idemManager,
		RateLimit:   rateLimitMw,
		ErrHandler:  errors.NewHandler(log, cfg.Sentry.Enabled),
	})

	// background jobs
	sweeper := reminder.NewSweeper(store, direct, defaultTexts, clock, reminder.Config{
		Interval: cfg.Reminder.Interval,
		Slack:    cfg.Reminder.Slack,
		Location: loc,
	}, log)

	scheduler := jobs.NewScheduler(clock, log,
		jobs.WithTickTimeout(cfg.Reminder.TickTimeout),
		jobs.WithLocation(loc),
	)
	stateCleaner := state.NewCleaner(stateStorage, clock, cfg.State.TTL, log)
	stateCollector := metrics.NewStateCollector(fsm)

	idemCleaner := idempotency.NewCleaner(nil, log)
	rateCleaner := ratelimit.NewCleaner(nil, memoryLimiter, clock, cfg.RateLimit.Window, log)
	if rdb != nil {
		idemCleaner = idempotency.NewCleaner(rdb.Client, log)
		rateCleaner = ratelimit.NewCleaner(rdb.Client, memoryLimiter, clock, cfg.RateLimit.Window, log)
	}

	jobsToRegister := []struct {
		name     string
		interval time.Duration
		fn       jobs.Job
	}{
		{name: "reminders", interval: cfg.Reminder.Interval, fn: sweeper.Tick},
		{name: "state-cleaner", interval: cfg.State.CleanupInterval, fn: discardCount(stateCleaner.Cleanup)},
		{name: "idempotency-cleaner", interval: idempotencySweep, fn: discardCount(idemCleaner.Cleanup)},
		{name: "ratelimit-cleaner", interval: rateLimitSweep, fn: discardCount(rateCleaner.Cleanup)},
		{name: "state-metrics", interval: stateMetricsInterval, fn: stateCollector.Collect},
	}
	for _, job := range jobsToRegister {
		if err := scheduler.Every(job.name, job.interval, job.fn); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}
	if cfg.Reminder.DigestCron != "" {
		if err := scheduler.Cron("digest", cfg.Reminder.DigestCron, sweeper.Digest); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	}

	probes := lifecycle.NewProbes(checker.Ready, log)
	opsServer := graceful.NewServer(cfg.Server.Port, lifecycle.NewOpsHandler(probes, log), cfg.Server.ShutdownTimeout, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return opsServer.ListenAndServe(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}
	g.Go(func() error {
		go b.Start()
		<-gctx.Done()
		probes.Drain()
		b.Stop()
		return nil
	})

	log.Info("trainer bot started", slog.Any("jobs", scheduler.Jobs()))

	runErr := g.Wait()
	if runErr != nil && !stdErrors.Is(runErr, context.Canceled) {
		log.Error("trainer bot stopped with error", slog.Any("error", runErr))
	} else {
		runErr = nil
	}

	// stores close after every goroutine using them has returned
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", slog.Any("error", err))
		if runErr == nil {
			runErr = err
		}
	}

	log.Info("trainer bot shut down")
	return runErr
}

func discardCount(fn func(context.Context) (int, error)) jobs.Job {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
