// Package qualification provides the lead qualification bounded context
// module. This file defines the module that encapsulates all qualification
// setup and route registration.
package qualification

import (
	"leadrouting_backend/internal/audit"
	"leadrouting_backend/internal/events"
	apphttp "leadrouting_backend/internal/http"
	"leadrouting_backend/internal/qualification/allocation"
	"leadrouting_backend/internal/qualification/handler"
	"leadrouting_backend/internal/qualification/nurture"
	"leadrouting_backend/internal/qualification/repository"
	"leadrouting_backend/internal/qualification/scoring"
	"leadrouting_backend/internal/qualification/service"
	"leadrouting_backend/internal/scheduler"
	"leadrouting_backend/platform/config"
	"leadrouting_backend/platform/logger"
	"leadrouting_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the qualification bounded context implementing http.Module.
type Module struct {
	handler      *handler.Handler
	orchestrator *service.Service
	allocator    *allocation.Service
	enroller     *nurture.Service
	repo         *repository.Repository
}

// NewModule creates and initializes the qualification module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, auditRepo *audit.Repository, eventBus events.Bus, sweeps scheduler.SweepScheduler, val *validator.Validator, cfg config.QualificationConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)

	allocator := allocation.New(repo, auditRepo, eventBus, log)
	enroller := nurture.New(repo, auditRepo, eventBus, log)
	engine := scoring.New(scoring.DefaultConfig())

	orchestrator := service.New(repo, engine, allocator, enroller, auditRepo, eventBus, log, service.BatchSettings{
		PageSize:    cfg.GetBatchPageSize(),
		ItemTimeout: cfg.GetBatchItemTimeout(),
		Concurrency: cfg.GetBatchConcurrency(),
	})

	h := handler.New(orchestrator, allocator, enroller, repo, auditRepo, sweeps, val)

	return &Module{
		handler:      h,
		orchestrator: orchestrator,
		allocator:    allocator,
		enroller:     enroller,
		repo:         repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "qualification"
}

// Orchestrator returns the qualification service for external callers such
// as the scheduler worker.
func (m *Module) Orchestrator() *service.Service {
	return m.orchestrator
}

// Repository returns the context's repository for readiness checks.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts qualification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/qualification")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
