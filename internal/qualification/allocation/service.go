package allocation

import (
	"context"
	"errors"
	"fmt"

	"leadrouting_backend/internal/audit"
	"leadrouting_backend/internal/events"
	"leadrouting_backend/internal/qualification/repository"
	"leadrouting_backend/platform/apperr"
	"leadrouting_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the allocation
// service. This is a consumer-driven interface - only what allocation needs.
type Repository interface {
	GetLead(ctx context.Context, tenantID, leadID uuid.UUID) (repository.Lead, error)
	ListActiveReps(ctx context.Context, tenantID uuid.UUID) ([]repository.Rep, error)
	GetRep(ctx context.Context, tenantID, repID uuid.UUID) (repository.Rep, error)
	AssignLead(ctx context.Context, tenantID, leadID, repID uuid.UUID, override bool) error
}

// AuditRecorder appends assignment decisions to the lead's audit trail.
type AuditRecorder interface {
	Append(ctx context.Context, tenantID, leadID uuid.UUID, eventType string, payload any) error
}

// Service ranks the rep pool and performs assignments.
type Service struct {
	repo    Repository
	auditor AuditRecorder
	bus     events.Bus
	log     *logger.Logger
	weights Weights
}

// New creates the allocation service.
func New(repo Repository, auditor AuditRecorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
		bus:     bus,
		log:     log,
		weights: DefaultWeights(),
	}
}

// Suggest returns the ranked candidate list for a lead, read-only.
// An empty rep pool yields an empty list, not an error.
func (s *Service) Suggest(ctx context.Context, tenantID, leadID uuid.UUID) ([]Suggestion, error) {
	lead, err := s.repo.GetLead(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, err
	}

	pool, err := s.repo.ListActiveReps(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return Rank(leadContext(lead), toCandidates(pool), s.weights), nil
}

// AssignRequest describes an assignment. Either Auto is set or RepID names
// an explicit rep. Override permits reassigning an already-owned lead.
type AssignRequest struct {
	RepID    *uuid.UUID
	Auto     bool
	Override bool
}

// Assignment is the outcome of a successful assign.
type Assignment struct {
	RepID    uuid.UUID
	RepName  string
	RepEmail string
	Auto     bool
}

// Assign routes the lead to a rep. The write is conditional at the storage
// layer: without override it succeeds only when the lead is unassigned, so
// a lost race surfaces as AlreadyAssigned and no load counter moves.
func (s *Service) Assign(ctx context.Context, tenantID, leadID uuid.UUID, req AssignRequest) (Assignment, error) {
	lead, err := s.repo.GetLead(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Assignment{}, apperr.NotFound("lead not found")
		}
		return Assignment{}, err
	}

	rep, err := s.resolveRep(ctx, tenantID, lead, req)
	if err != nil {
		return Assignment{}, err
	}

	if err := s.repo.AssignLead(ctx, tenantID, leadID, rep.ID, req.Override); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyAssigned):
			return Assignment{}, apperr.Conflict("lead is already assigned")
		case errors.Is(err, repository.ErrNotFound):
			return Assignment{}, apperr.NotFound("lead not found")
		default:
			return Assignment{}, err
		}
	}

	assignment := Assignment{
		RepID:    rep.ID,
		RepName:  rep.Name,
		RepEmail: rep.Email,
		Auto:     req.Auto,
	}

	if err := s.auditor.Append(ctx, tenantID, leadID, audit.EventRepAssigned, map[string]any{
		"repId":    rep.ID,
		"repName":  rep.Name,
		"auto":     req.Auto,
		"override": req.Override,
	}); err != nil {
		s.log.Error("failed to append audit event", "leadId", leadID, "event", audit.EventRepAssigned, "error", err)
	}

	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  tenantID,
		LeadID:    leadID,
		LeadName:  fmt.Sprintf("%s %s", lead.FirstName, lead.LastName),
		RepID:     rep.ID,
		RepName:   rep.Name,
		RepEmail:  rep.Email,
		Auto:      req.Auto,
	})

	return assignment, nil
}

func (s *Service) resolveRep(ctx context.Context, tenantID uuid.UUID, lead repository.Lead, req AssignRequest) (repository.Rep, error) {
	if req.Auto {
		pool, err := s.repo.ListActiveReps(ctx, tenantID)
		if err != nil {
			return repository.Rep{}, err
		}

		ranked := Rank(leadContext(lead), toCandidates(pool), s.weights)
		if len(ranked) == 0 {
			return repository.Rep{}, apperr.Unprocessable("no eligible rep available")
		}

		for _, rep := range pool {
			if rep.ID == ranked[0].Rep.ID {
				return rep, nil
			}
		}
		return repository.Rep{}, apperr.Unprocessable("no eligible rep available")
	}

	if req.RepID == nil {
		return repository.Rep{}, apperr.Validation("repId or auto is required")
	}

	rep, err := s.repo.GetRep(ctx, tenantID, *req.RepID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Rep{}, apperr.NotFound("rep not found")
		}
		return repository.Rep{}, err
	}
	if !rep.Active {
		return repository.Rep{}, apperr.NotFound("rep not found")
	}
	return rep, nil
}

func leadContext(lead repository.Lead) LeadContext {
	return LeadContext{Tags: lead.Tags, Industry: lead.Industry}
}

func toCandidates(pool []repository.Rep) []Rep {
	candidates := make([]Rep, 0, len(pool))
	for _, rep := range pool {
		specialization := ""
		if rep.Specialization != nil {
			specialization = *rep.Specialization
		}
		candidates = append(candidates, Rep{
			ID:                 rep.ID,
			Name:               rep.Name,
			Email:              rep.Email,
			ConversionRate:     rep.ConversionRate,
			Specialization:     specialization,
			AssignedLeadsCount: rep.AssignedLeadsCount,
			Active:             rep.Active,
		})
	}
	return candidates
}
