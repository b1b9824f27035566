// Package nurture enrolls leads that are not yet sales-ready into nurture
// sequences. Enrollment is idempotent per (lead, template family): the
// storage layer enforces at most one ACTIVE enrollment and repeated calls
// return the existing one. Step delivery is driven externally; this package
// only owns the enrollment record and its invariant.
package nurture

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

// DefaultTemplateFamily is the family the orchestrator enrolls into when
// the caller does not name one.
const DefaultTemplateFamily = "standard"

// Repository defines the data access interface needed by enrollment.
type Repository interface {
	GetLead(ctx context.Context, tenantID, leadID uuid.UUID) (repository.Lead, error)
	GetActiveTemplate(ctx context.Context, tenantID uuid.UUID, family string, score int) (repository.Template, error)
	CountTemplateSteps(ctx context.Context, templateID uuid.UUID) (int, error)
	CreateEnrollmentIfAbsent(ctx context.Context, tenantID, leadID uuid.UUID, tpl repository.Template, totalSteps int) (repository.Enrollment, bool, error)
}

// AuditRecorder appends enrollment decisions to the lead's audit trail.
type AuditRecorder interface {
	Append(ctx context.Context, tenantID, leadID uuid.UUID, eventType string, payload any) error
}

// Result reports an enrollment outcome. Skipped means the tenant has no
// template configured for the family - a configuration gap, not an error.
type Result struct {
	EnrollmentID uuid.UUID `json:"enrollmentId,omitempty"`
	Created      bool      `json:"created"`
	Skipped      bool      `json:"skipped"`
	Reason       string    `json:"reason,omitempty"`
}

// Service manages nurture enrollments.
type Service struct {
	repo    Repository
	auditor AuditRecorder
	bus     events.Bus
	log     *logger.Logger
}

// New creates the enrollment service.
func New(repo Repository, auditor AuditRecorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, bus: bus, log: log}
}

// Enroll places the lead into the family's sequence. Calling it twice for
// the same lead and family returns the same enrollment ID both times.
func (s *Service) Enroll(ctx context.Context, tenantID, leadID uuid.UUID, family string) (Result, error) {
	if family == "" {
		family = DefaultTemplateFamily
	}

	lead, err := s.repo.GetLead(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, apperr.NotFound("lead not found")
		}
		return Result{}, err
	}

	score := 0
	if lead.LeadScore != nil {
		score = *lead.LeadScore
	}

	tpl, err := s.repo.GetActiveTemplate(ctx, tenantID, family, score)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{
				Skipped: true,
				Reason:  fmt.Sprintf("no active nurture template configured for family %q", family),
			}, nil
		}
		return Result{}, err
	}

	totalSteps, err := s.repo.CountTemplateSteps(ctx, tpl.ID)
	if err != nil {
		return Result{}, err
	}

	enrollment, created, err := s.repo.CreateEnrollmentIfAbsent(ctx, tenantID, leadID, tpl, totalSteps)
	if err != nil {
		return Result{}, err
	}

	if created {
		if err := s.auditor.Append(ctx, tenantID, leadID, audit.EventNurtureEnrolled, map[string]any{
			"enrollmentId":   enrollment.ID,
			"templateFamily": enrollment.TemplateFamily,
			"templateId":     enrollment.TemplateID,
			"totalSteps":     enrollment.TotalSteps,
		}); err != nil {
			s.log.Error("failed to append audit event", "leadId", leadID, "event", audit.EventNurtureEnrolled, "error", err)
		}

		s.bus.Publish(ctx, events.NurtureEnrolled{
			BaseEvent:      events.NewBaseEvent(),
			TenantID:       tenantID,
			LeadID:         leadID,
			EnrollmentID:   enrollment.ID,
			TemplateFamily: enrollment.TemplateFamily,
		})
	}

	return Result{
		EnrollmentID: enrollment.ID,
		Created:      created,
		Reason:       fmt.Sprintf("enrolled in template %q (%d steps)", tpl.Name, totalSteps),
	}, nil
}
