// Package service orchestrates the full lead qualification pipeline:
// score, classify, then route, nurture or do nothing, with every automated
// decision appended to the lead's audit trail.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadrouting_backend/internal/audit"
	"leadrouting_backend/internal/events"
	"leadrouting_backend/internal/qualification/allocation"
	"leadrouting_backend/internal/qualification/classify"
	"leadrouting_backend/internal/qualification/nurture"
	"leadrouting_backend/internal/qualification/repository"
	"leadrouting_backend/internal/qualification/scoring"
	"leadrouting_backend/internal/qualification/transport"
	"leadrouting_backend/platform/apperr"
	"leadrouting_backend/platform/logger"
	"leadrouting_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Repository defines the data access interface needed by the orchestrator.
type Repository interface {
	GetLead(ctx context.Context, tenantID, leadID uuid.UUID) (repository.Lead, error)
	ListInteractions(ctx context.Context, tenantID, leadID uuid.UUID) ([]repository.Interaction, error)
	ListDeals(ctx context.Context, tenantID, leadID uuid.UUID) ([]repository.Deal, error)
	ListInvoices(ctx context.Context, tenantID, leadID uuid.UUID) ([]repository.Invoice, error)
	UpdateLeadScore(ctx context.Context, tenantID, leadID uuid.UUID, update repository.ScoreUpdate) error
	ListLeadIDsForSweep(ctx context.Context, tenantID uuid.UUID, filter repository.SweepFilter) ([]uuid.UUID, error)
}

// Allocator is the assignment collaborator.
type Allocator interface {
	Assign(ctx context.Context, tenantID, leadID uuid.UUID, req allocation.AssignRequest) (allocation.Assignment, error)
}

// Enroller is the nurture collaborator.
type Enroller interface {
	Enroll(ctx context.Context, tenantID, leadID uuid.UUID, family string) (nurture.Result, error)
}

// AuditRecorder appends qualification decisions to the audit trail.
type AuditRecorder interface {
	Append(ctx context.Context, tenantID, leadID uuid.UUID, eventType string, payload any) error
}

// BatchSettings bound the work a batch sweep may do.
type BatchSettings struct {
	PageSize    int
	ItemTimeout time.Duration
	Concurrency int
}

func (s BatchSettings) normalized() BatchSettings {
	if s.PageSize < 1 || s.PageSize > 100 {
		s.PageSize = 100
	}
	if s.ItemTimeout <= 0 {
		s.ItemTimeout = 10 * time.Second
	}
	if s.Concurrency < 1 {
		s.Concurrency = 8
	}
	return s
}

// Service is the qualification orchestrator.
type Service struct {
	repo      Repository
	engine    *scoring.Engine
	allocator Allocator
	enroller  Enroller
	auditor   AuditRecorder
	bus       events.Bus
	log       *logger.Logger
	batch     BatchSettings
}

// New creates the orchestrator.
func New(repo Repository, engine *scoring.Engine, allocator Allocator, enroller Enroller, auditor AuditRecorder, bus events.Bus, log *logger.Logger, batch BatchSettings) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		allocator: allocator,
		enroller:  enroller,
		auditor:   auditor,
		bus:       bus,
		log:       log,
		batch:     batch.normalized(),
	}
}

// Options tune a single qualification pass.
type Options struct {
	Thresholds *classify.Thresholds
	AutoAssign bool
	// NewLead applies the softer first-touch thresholds and suppresses
	// auto-assignment regardless of AutoAssign.
	NewLead bool
}

// Qualify runs the full pipeline for one lead. Assignment and enrollment
// failures are downgraded to a reason on the result: the computed score and
// tier always persist.
func (s *Service) Qualify(ctx context.Context, tenantID, leadID uuid.UUID, opts Options) (transport.QualificationResult, error) {
	thresholds, err := resolveThresholds(opts)
	if err != nil {
		return transport.QualificationResult{}, err
	}

	lead, err := s.repo.GetLead(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.QualificationResult{}, apperr.NotFound("lead not found")
		}
		return transport.QualificationResult{}, err
	}

	input, err := s.buildScoringInput(ctx, tenantID, lead)
	if err != nil {
		return transport.QualificationResult{}, err
	}

	scored := s.engine.Score(input)
	outcome := classify.Classify(scored.Score, thresholds)

	result := transport.QualificationResult{
		LeadID:                leadID,
		Qualified:             outcome.Tier != classify.TierUnqualified,
		Tier:                  string(outcome.Tier),
		Action:                string(outcome.Action),
		Score:                 scored.Score,
		ConversionProbability: scored.ConversionProbability,
		Components:            scored.Components,
		ScoredAt:              input.Now,
	}

	// The nurture band lookup re-reads the stored score, so it must be on
	// record before any action runs.
	if err := s.persistScore(ctx, tenantID, leadID, scored, input.Now); err != nil {
		return transport.QualificationResult{}, err
	}

	switch outcome.Action {
	case classify.ActionAutoRoute:
		s.handleAutoRoute(ctx, tenantID, lead, opts, &result)
	case classify.ActionNurture:
		s.handleNurture(ctx, tenantID, leadID, &result)
	case classify.ActionManualReview:
		result.Reason = "score in manual-review band; awaiting human triage"
	default:
		result.Reason = "score below nurture threshold; no action taken"
	}

	s.recordOutcome(ctx, tenantID, leadID, result, outcome)
	return result, nil
}

// QualifyNewLead runs the first-touch variant: softer thresholds, never
// auto-assigns. Ownership decisions are left to a human or a later pass.
func (s *Service) QualifyNewLead(ctx context.Context, tenantID, leadID uuid.UUID) (transport.QualificationResult, error) {
	return s.Qualify(ctx, tenantID, leadID, Options{NewLead: true})
}

// BatchQualify qualifies up to a page of leads matching the request filter.
// Items run concurrently with an independent timeout each; one lead's
// failure never aborts its siblings, and every lead gets exactly one entry
// in the returned slice.
func (s *Service) BatchQualify(ctx context.Context, tenantID uuid.UUID, req transport.BatchQualifyRequest) ([]transport.BatchItemResult, error) {
	if req.Thresholds != nil {
		if err := req.Thresholds.Validate(); err != nil {
			return nil, err
		}
	}

	limit := req.Limit
	if limit < 1 || limit > s.batch.PageSize {
		limit = s.batch.PageSize
	}

	leadIDs, err := s.repo.ListLeadIDsForSweep(ctx, tenantID, repository.SweepFilter{
		Stage:   req.Stage,
		LeadIDs: req.LeadIDs,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	results := make([]transport.BatchItemResult, len(leadIDs))
	var group errgroup.Group
	group.SetLimit(s.batch.Concurrency)

	var mu sync.Mutex
	for i, leadID := range leadIDs {
		group.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, s.batch.ItemTimeout)
			defer cancel()

			item := transport.BatchItemResult{LeadID: leadID}
			result, err := s.Qualify(itemCtx, tenantID, leadID, Options{
				Thresholds: req.Thresholds,
				AutoAssign: req.AutoAssign,
			})
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Result = &result
			}

			mu.Lock()
			results[i] = item
			mu.Unlock()
			return nil
		})
	}

	// Group funcs never return errors: partial failure is per item.
	_ = group.Wait()
	return results, nil
}

func resolveThresholds(opts Options) (classify.Thresholds, error) {
	switch {
	case opts.Thresholds != nil:
		if err := opts.Thresholds.Validate(); err != nil {
			return classify.Thresholds{}, err
		}
		return *opts.Thresholds, nil
	case opts.NewLead:
		return classify.NewLeadThresholds(), nil
	default:
		return classify.DefaultThresholds(), nil
	}
}

func (s *Service) handleAutoRoute(ctx context.Context, tenantID uuid.UUID, lead repository.Lead, opts Options, result *transport.QualificationResult) {
	if opts.NewLead || !opts.AutoAssign {
		result.Reason = "auto-route recommended; assignment deferred"
		return
	}
	if lead.AssignedRepID != nil {
		result.AssignedRepID = lead.AssignedRepID
		result.Reason = "already assigned; ownership unchanged"
		return
	}

	assignment, err := s.allocator.Assign(ctx, tenantID, lead.ID, allocation.AssignRequest{Auto: true})
	if err != nil {
		// Non-fatal: the score and tier stand even when routing fails.
		result.Reason = fmt.Sprintf("auto-assignment failed (%s); needs manual assignment", err.Error())
		s.log.AssignmentEvent(lead.ID.String(), "", false, err.Error())
		return
	}

	result.AssignedRepID = &assignment.RepID
	result.Reason = fmt.Sprintf("auto-routed to %s", assignment.RepName)
	s.log.AssignmentEvent(lead.ID.String(), assignment.RepID.String(), true, "")
}

func (s *Service) handleNurture(ctx context.Context, tenantID, leadID uuid.UUID, result *transport.QualificationResult) {
	enrolled, err := s.enroller.Enroll(ctx, tenantID, leadID, nurture.DefaultTemplateFamily)
	if err != nil {
		result.Reason = fmt.Sprintf("nurture enrollment failed (%s)", err.Error())
		return
	}
	if enrolled.Skipped {
		result.Reason = enrolled.Reason
		return
	}

	result.NurtureEnrollmentID = &enrolled.EnrollmentID
	if enrolled.Created {
		result.Reason = "enrolled in nurture sequence"
	} else {
		result.Reason = "already in nurture sequence"
	}
}

func (s *Service) buildScoringInput(ctx context.Context, tenantID uuid.UUID, lead repository.Lead) (scoring.Input, error) {
	interactions, err := s.repo.ListInteractions(ctx, tenantID, lead.ID)
	if err != nil {
		return scoring.Input{}, err
	}
	deals, err := s.repo.ListDeals(ctx, tenantID, lead.ID)
	if err != nil {
		return scoring.Input{}, err
	}
	invoices, err := s.repo.ListInvoices(ctx, tenantID, lead.ID)
	if err != nil {
		return scoring.Input{}, err
	}

	input := scoring.Input{
		Profile: scoring.Profile{
			Company:      lead.Company,
			Industry:     lead.Industry,
			City:         lead.City,
			State:        lead.State,
			Email:        lead.Email,
			Phone:        phone.NormalizeE164(lead.Phone),
			Address:      lead.Address,
			TaxID:        lead.TaxID,
			Tags:         lead.Tags,
			LikelyToBuy:  lead.LikelyToBuy,
			ChurnRisk:    lead.ChurnRisk,
			ResponseRate: lead.ResponseRate,
		},
		Now: time.Now().UTC(),
	}

	for _, interaction := range interactions {
		input.Interactions = append(input.Interactions, scoring.Interaction{
			Type:       interaction.Type,
			OccurredAt: interaction.OccurredAt,
		})
	}
	for _, deal := range deals {
		input.Deals = append(input.Deals, scoring.Deal{Stage: deal.Stage, Value: deal.Value})
	}
	for _, invoice := range invoices {
		input.Invoices = append(input.Invoices, scoring.Invoice{Status: invoice.Status, Total: invoice.Total})
	}

	return input, nil
}

func (s *Service) persistScore(ctx context.Context, tenantID, leadID uuid.UUID, scored scoring.Result, scoredAt time.Time) error {
	components, err := json.Marshal(scored.Components)
	if err != nil {
		return err
	}
	return s.repo.UpdateLeadScore(ctx, tenantID, leadID, repository.ScoreUpdate{
		Score:                 scored.Score,
		ConversionProbability: scored.ConversionProbability,
		Components:            components,
		ScoredAt:              scoredAt,
	})
}

func (s *Service) recordOutcome(ctx context.Context, tenantID, leadID uuid.UUID, result transport.QualificationResult, outcome classify.Outcome) {
	if err := s.auditor.Append(ctx, tenantID, leadID, audit.EventLeadQualified, map[string]any{
		"score":               result.Score,
		"tier":                result.Tier,
		"action":              result.Action,
		"assignedRepId":       result.AssignedRepID,
		"nurtureEnrollmentId": result.NurtureEnrollmentID,
		"reason":              result.Reason,
	}); err != nil {
		s.log.Error("failed to append audit event", "leadId", leadID, "event", audit.EventLeadQualified, "error", err)
	}

	s.bus.Publish(ctx, events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  tenantID,
		LeadID:    leadID,
		Score:     result.Score,
		Tier:      result.Tier,
		Action:    result.Action,
	})

	if outcome.Tier == classify.TierPQL {
		s.bus.Publish(ctx, events.HotLeadDetected{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  tenantID,
			LeadID:    leadID,
			Score:     result.Score,
		})
	}

	s.log.QualificationEvent(leadID.String(), result.Score, result.Tier, result.Action)
}
