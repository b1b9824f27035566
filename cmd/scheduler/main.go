package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadrouting_backend/internal/audit"
	"leadrouting_backend/internal/events"
	"leadrouting_backend/internal/metrics"
	"leadrouting_backend/internal/notify"
	"leadrouting_backend/internal/qualification"
	"leadrouting_backend/internal/scheduler"
	"leadrouting_backend/platform/config"
	"leadrouting_backend/platform/db"
	"leadrouting_backend/platform/logger"
	"leadrouting_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// Worker-side wiring (no HTTP handlers required).
	notifyModule := notify.New(notify.NewSMTPSender(cfg), cfg, log)
	notifyModule.RegisterHandlers(eventBus)

	metricsModule := metrics.New()
	metricsModule.RegisterHandlers(eventBus)

	val := validator.New()
	auditRepo := audit.NewRepository(pool)
	qualificationModule := qualification.NewModule(pool, auditRepo, eventBus, nil, val, cfg, log)

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()
	go periodic.Run()

	worker, err := scheduler.NewWorker(cfg, pool, qualificationModule.Orchestrator(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	if cfg.IsAuditArchiveEnabled() {
		archiver, err := audit.NewArchiver(auditRepo, cfg, log)
		if err != nil {
			log.Error("failed to initialize audit archiver", "error", err)
			panic("failed to initialize audit archiver: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure audit archive bucket", 5, 2*time.Second, func() error {
			return archiver.EnsureBucketExists(ctx)
		}); err != nil {
			log.Error("failed to ensure audit archive bucket", "error", err)
			panic("failed to ensure audit archive bucket: " + err.Error())
		}
		worker.SetArchiver(archiver)
		log.Info("audit archiver enabled", "bucket", cfg.GetAuditArchiveBucket())
	} else {
		log.Warn("audit archiver disabled; audit events are retained in the database only")
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
