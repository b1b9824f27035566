package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Rep is a sales representative in the allocation pool.
type Rep struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	Name               string
	Email              string
	ConversionRate     float64
	Specialization     *string
	AssignedLeadsCount int
	Active             bool
}

const repColumns = `
	id, tenant_id, name, email, conversion_rate, specialization,
	assigned_leads_count, active`

// ListActiveReps returns the active rep pool for a tenant, ordered by ID
// for deterministic downstream ranking.
func (r *Repository) ListActiveReps(ctx context.Context, tenantID uuid.UUID) ([]Rep, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+repColumns+`
		FROM sales_reps
		WHERE tenant_id = $1 AND active
		ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps := make([]Rep, 0)
	for rows.Next() {
		var rep Rep
		if err := rows.Scan(
			&rep.ID, &rep.TenantID, &rep.Name, &rep.Email, &rep.ConversionRate,
			&rep.Specialization, &rep.AssignedLeadsCount, &rep.Active,
		); err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

// GetRep returns a single rep within the tenant scope.
func (r *Repository) GetRep(ctx context.Context, tenantID, repID uuid.UUID) (Rep, error) {
	var rep Rep
	err := r.pool.QueryRow(ctx, `
		SELECT `+repColumns+`
		FROM sales_reps
		WHERE id = $1 AND tenant_id = $2
	`, repID, tenantID).Scan(
		&rep.ID, &rep.TenantID, &rep.Name, &rep.Email, &rep.ConversionRate,
		&rep.Specialization, &rep.AssignedLeadsCount, &rep.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rep{}, ErrNotFound
	}
	return rep, err
}
