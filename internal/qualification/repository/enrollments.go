package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EnrollmentStatusActive is the only non-terminal enrollment status.
// Terminal statuses (COMPLETED, CANCELLED) are written by the external
// step-delivery mechanism, never by this engine.
const EnrollmentStatusActive = "ACTIVE"

// Enrollment is a lead's membership in a nurture sequence.
type Enrollment struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	LeadID         uuid.UUID
	TemplateID     uuid.UUID
	TemplateFamily string
	Status         string
	TotalSteps     int
	CompletedSteps int
	CreatedAt      time.Time
}

// Template is the read-only nurture sequence configuration.
type Template struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Family    string
	Name      string
	Active    bool
	MinScore  *int
	MaxScore  *int
	CreatedAt time.Time
}

// GetActiveTemplate returns the template an enrollment should use for the
// family: the most recent active one whose score band (when configured)
// contains the score. Returns ErrNotFound when the tenant has none.
func (r *Repository) GetActiveTemplate(ctx context.Context, tenantID uuid.UUID, family string, score int) (Template, error) {
	var tpl Template
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, family, name, active, min_score, max_score, created_at
		FROM nurture_templates
		WHERE tenant_id = $1 AND family = $2 AND active
		  AND (min_score IS NULL OR min_score <= $3)
		  AND (max_score IS NULL OR max_score >= $3)
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, family, score).Scan(
		&tpl.ID, &tpl.TenantID, &tpl.Family, &tpl.Name, &tpl.Active,
		&tpl.MinScore, &tpl.MaxScore, &tpl.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return tpl, err
}

// CountTemplateSteps returns the number of steps in a template.
func (r *Repository) CountTemplateSteps(ctx context.Context, templateID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM nurture_steps WHERE template_id = $1
	`, templateID).Scan(&count)
	return count, err
}

// CreateEnrollmentIfAbsent inserts a new ACTIVE enrollment unless the lead
// already has one in the same template family. The uniqueness is enforced
// by a partial unique index, so concurrent enrollments collapse to a single
// row: the insert is ON CONFLICT DO NOTHING and the existing enrollment is
// returned instead. The second return value reports whether a row was created.
func (r *Repository) CreateEnrollmentIfAbsent(ctx context.Context, tenantID, leadID uuid.UUID, tpl Template, totalSteps int) (Enrollment, bool, error) {
	var enrollment Enrollment
	err := r.pool.QueryRow(ctx, `
		INSERT INTO nurture_enrollments
			(tenant_id, lead_id, template_id, template_family, status, total_steps, completed_steps)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		ON CONFLICT (lead_id, template_family) WHERE status = 'ACTIVE' DO NOTHING
		RETURNING id, tenant_id, lead_id, template_id, template_family, status,
			total_steps, completed_steps, created_at
	`, tenantID, leadID, tpl.ID, tpl.Family, EnrollmentStatusActive, totalSteps).Scan(
		&enrollment.ID, &enrollment.TenantID, &enrollment.LeadID, &enrollment.TemplateID,
		&enrollment.TemplateFamily, &enrollment.Status, &enrollment.TotalSteps,
		&enrollment.CompletedSteps, &enrollment.CreatedAt,
	)
	if err == nil {
		return enrollment, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, false, err
	}

	existing, err := r.GetActiveEnrollment(ctx, tenantID, leadID, tpl.Family)
	if err != nil {
		return Enrollment{}, false, err
	}
	return existing, false, nil
}

// GetActiveEnrollment returns the lead's ACTIVE enrollment in the family.
func (r *Repository) GetActiveEnrollment(ctx context.Context, tenantID, leadID uuid.UUID, family string) (Enrollment, error) {
	var enrollment Enrollment
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, lead_id, template_id, template_family, status,
			total_steps, completed_steps, created_at
		FROM nurture_enrollments
		WHERE tenant_id = $1 AND lead_id = $2 AND template_family = $3 AND status = $4
	`, tenantID, leadID, family, EnrollmentStatusActive).Scan(
		&enrollment.ID, &enrollment.TenantID, &enrollment.LeadID, &enrollment.TemplateID,
		&enrollment.TemplateFamily, &enrollment.Status, &enrollment.TotalSteps,
		&enrollment.CompletedSteps, &enrollment.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return enrollment, err
}
