// Package app assembles the notification service from its configuration and
// owns the lifecycle of every long-lived resource.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/api"
	"github.com/ricirt/meeting-notifier/internal/config"
	"github.com/ricirt/meeting-notifier/internal/contact"
	"github.com/ricirt/meeting-notifier/internal/db"
	"github.com/ricirt/meeting-notifier/internal/dispatch"
	"github.com/ricirt/meeting-notifier/internal/metrics"
	"github.com/ricirt/meeting-notifier/internal/outcome"
	"github.com/ricirt/meeting-notifier/internal/queue"
	"github.com/ricirt/meeting-notifier/internal/ratelimiter"
	"github.com/ricirt/meeting-notifier/internal/repository"
	"github.com/ricirt/meeting-notifier/internal/sender"
	"github.com/ricirt/meeting-notifier/internal/service"
	"github.com/ricirt/meeting-notifier/internal/templates"
	"github.com/ricirt/meeting-notifier/internal/worker"
)

// App is the running service: HTTP intake, the worker pool and the recovery
// sweep, plus the connections they share.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	pool  *pgxpool.Pool
	sqlDB *sql.DB
	rdb   *redis.Client
	q     queue.Queue

	workers  *worker.Pool
	recovery *worker.RecoveryWorker
	srv      *http.Server
}

// New connects to Postgres and Redis, applies migrations and wires every
// component. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	var err error

	// ---- database ----
	if a.pool, err = db.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err = db.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	logger.Info("database migrations applied")
	a.sqlDB = db.SQL(a.pool)

	// ---- redis ----
	a.rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err = a.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	// ---- queue ----
	switch cfg.QueueBackend {
	case "memory":
		a.q = queue.NewMemoryQueue()
	default:
		a.q = queue.NewRedisQueue(a.rdb, queue.RedisQueueOptions{
			Prefix:       cfg.QueuePrefix,
			PollInterval: cfg.QueuePollInterval,
		})
	}
	logger.Info("queue ready", zap.String("backend", cfg.QueueBackend))

	// ---- transports ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	sesClient := ses.NewFromConfig(awsCfg)
	snsClient := sns.NewFromConfig(awsCfg)

	var push sender.PushTransport
	switch cfg.PushBackend {
	case "webhook":
		push = sender.NewWebhookPushTransport(cfg.PushWebhookURL, cfg.PushTimeout)
	default:
		push = sender.NewSNSPushTransport(snsClient)
	}

	tmpl, err := templates.Default()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	contacts := contact.NewStore(a.sqlDB, a.rdb, contact.Options{
		CacheTTL:    cfg.ContactCacheTTL,
		TokenPrefix: cfg.PushTokenPrefix,
	}, logger.Named("contact"))

	dispatcher, err := dispatch.New(contacts,
		sender.NewEmailSender(sesClient, tmpl, cfg.EmailFrom),
		sender.NewSMSSender(snsClient, tmpl),
		sender.NewPushSender(push, tmpl),
		sender.NewInAppSender(a.rdb, cfg.InAppTopic),
	)
	if err != nil {
		return nil, err
	}

	// ---- core ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := repository.NewPgNotificationRepository(a.pool)
	svc := service.NewNotificationService(repo, a.q, tmpl, service.Options{
		MaxAttempts: cfg.MaxAttempts,
		OnAccepted:  m.Accepted,
	}, logger)

	onDelivered, onFailed, onRetried := m.WorkerHooks()
	a.workers = worker.NewPool(cfg, a.q, dispatcher, outcome.NewRecorder(repo, logger),
		ratelimiter.New(cfg.RateLimit), logger, worker.MetricHooks{
			OnDelivered: onDelivered,
			OnFailed:    onFailed,
			OnRetried:   onRetried,
		})
	a.recovery = worker.NewRecoveryWorker(repo, a.q,
		cfg.RecoveryInterval, cfg.PendingGrace, cfg.QueueLeaseTimeout, cfg.MaxAttempts,
		m.ObserveDepths, logger.Named("recovery"))

	// ---- HTTP ----
	a.srv = &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(cfg.ServiceName, svc, a.q, reg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	ready = true
	return a, nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts down in
// order: stop intake, cancel workers, wait for in-flight attempts.
func (a *App) Run(ctx context.Context) error {
	// Workers outlive ctx so they can be stopped after HTTP intake.
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()

	a.workers.Start(workerCtx)
	recoveryDone := make(chan struct{})
	go func() {
		defer close(recoveryDone)
		a.recovery.Run(workerCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", a.srv.Addr))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal workers to stop, then wait for in-flight attempts.
	cancelWorkers()
	a.workers.Wait()
	<-recoveryDone

	a.logger.Info("server stopped cleanly")
	return runErr
}

// Close releases the queue and every connection. It is safe on a partially
// built App.
func (a *App) Close() {
	if a.q != nil {
		if err := a.q.Close(); err != nil {
			a.logger.Warn("close queue", zap.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
