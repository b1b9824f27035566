package scheduler

import (
	"context"
	"fmt"

	"leadrouting_backend/internal/qualification/repository"
	"leadrouting_backend/internal/qualification/service"
	"leadrouting_backend/internal/qualification/transport"
	"leadrouting_backend/platform/config"
	"leadrouting_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Archiver moves expired audit events to object storage and reports how
// many it archived.
type Archiver interface {
	Run(ctx context.Context) (int, error)
}

// Worker consumes scheduled qualification and archival tasks.
type Worker struct {
	server       *asynq.Server
	mux          *asynq.ServeMux
	repo         *repository.Repository
	orchestrator *service.Service
	archiver     Archiver
	log          *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, orchestrator *service.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:       server,
		mux:          mux,
		repo:         repository.New(pool),
		orchestrator: orchestrator,
		log:          log,
	}

	mux.HandleFunc(TaskBatchQualify, w.handleBatchQualify)
	mux.HandleFunc(TaskAuditArchive, w.handleAuditArchive)

	return w, nil
}

// SetArchiver wires the audit archiver. Without it archive tasks are
// acknowledged and skipped.
func (w *Worker) SetArchiver(archiver Archiver) {
	w.archiver = archiver
}

func (w *Worker) handleBatchQualify(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBatchQualifyPayload(task)
	if err != nil {
		return err
	}

	tenants, err := w.resolveTenants(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	for _, tenantID := range tenants {
		results, err := w.orchestrator.BatchQualify(ctx, tenantID, transport.BatchQualifyRequest{
			Stage:      payload.Stage,
			AutoAssign: payload.AutoAssign,
			Limit:      payload.Limit,
		})
		if err != nil {
			w.log.Error("batch sweep failed", "tenantId", tenantID, "error", err)
			continue
		}

		failed := 0
		for _, item := range results {
			if item.Error != "" {
				failed++
			}
		}
		w.log.Info("batch sweep complete", "tenantId", tenantID, "leads", len(results), "failed", failed)
	}

	return nil
}

func (w *Worker) resolveTenants(ctx context.Context, raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return w.repo.ListTenantIDs(ctx)
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return []uuid.UUID{tenantID}, nil
}

func (w *Worker) handleAuditArchive(ctx context.Context, _ *asynq.Task) error {
	if w.archiver == nil {
		w.log.Warn("audit archive task received but archiver is not configured")
		return nil
	}

	archived, err := w.archiver.Run(ctx)
	if err != nil {
		return err
	}
	w.log.Info("audit archive complete", "archived", archived)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
