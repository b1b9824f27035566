// Package repository provides tenant-scoped persistence for the
// qualification engine. Every query filters on tenant_id; there is no
// ambient tenant state anywhere in the call chain.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lead, rep or template does not exist
	// within the tenant scope.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned is returned when a conditional assignment matched
	// zero rows because the lead already has an owner.
	ErrAlreadyAssigned = errors.New("lead already assigned")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lead is a contact in the lead stage with its scoring state.
type Lead struct {
	ID                    uuid.UUID
	TenantID              uuid.UUID
	FirstName             string
	LastName              string
	Company               string
	Industry              string
	Email                 string
	Phone                 string
	Address               string
	City                  string
	State                 string
	TaxID                 string
	Tags                  []string
	Stage                 string
	LeadScore             *int
	ScoreComponents       json.RawMessage
	ConversionProbability *int
	ScoreUpdatedAt        *time.Time
	AssignedRepID         *uuid.UUID
	LikelyToBuy           bool
	ChurnRisk             bool
	ResponseRate          *float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

const leadColumns = `
	id, tenant_id, first_name, last_name, company, industry, email, phone,
	address, city, state, tax_id, tags, stage, lead_score, score_components,
	conversion_probability, score_updated_at, assigned_rep_id,
	likely_to_buy, churn_risk, response_rate, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.FirstName, &lead.LastName, &lead.Company,
		&lead.Industry, &lead.Email, &lead.Phone, &lead.Address, &lead.City,
		&lead.State, &lead.TaxID, &lead.Tags, &lead.Stage, &lead.LeadScore,
		&lead.ScoreComponents, &lead.ConversionProbability, &lead.ScoreUpdatedAt,
		&lead.AssignedRepID, &lead.LikelyToBuy, &lead.ChurnRisk, &lead.ResponseRate,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// GetLead returns a single lead within the tenant scope.
func (r *Repository) GetLead(ctx context.Context, tenantID, leadID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID)
	return scanLead(row)
}

// SweepFilter narrows the lead set a batch sweep operates on.
type SweepFilter struct {
	Stage   *string
	LeadIDs []uuid.UUID
	Limit   int
}

// ListLeadIDsForSweep returns up to Limit lead IDs matching the filter,
// oldest score first so stale leads are rescored before fresh ones.
func (r *Repository) ListLeadIDsForSweep(ctx context.Context, tenantID uuid.UUID, filter SweepFilter) ([]uuid.UUID, error) {
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 100
	}

	query := `
		SELECT id FROM leads
		WHERE tenant_id = $1
		  AND ($2::text IS NULL OR stage = $2)
		  AND (cardinality($3::uuid[]) = 0 OR id = ANY($3))
		ORDER BY score_updated_at ASC NULLS FIRST, created_at ASC
		LIMIT $4`

	ids := filter.LeadIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}

	rows, err := r.pool.Query(ctx, query, tenantID, filter.Stage, ids, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ScoreUpdate persists a scoring pass.
type ScoreUpdate struct {
	Score                 int
	ConversionProbability int
	Components            json.RawMessage
	ScoredAt              time.Time
}

// UpdateLeadScore stores the score, its components and the scoring timestamp.
func (r *Repository) UpdateLeadScore(ctx context.Context, tenantID, leadID uuid.UUID, update ScoreUpdate) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET lead_score = $3, conversion_probability = $4, score_components = $5,
		    score_updated_at = $6, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID, update.Score, update.ConversionProbability, update.Components, update.ScoredAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTenantIDs returns every tenant with leads, for scheduler-driven
// sweeps that run across the whole installation.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM leads`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping verifies database connectivity for health checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
