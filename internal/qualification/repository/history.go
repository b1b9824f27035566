package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Interaction is an immutable recorded touch, read-only input to scoring.
type Interaction struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	Type       string
	OccurredAt time.Time
}

// Deal is a sales opportunity, read-only input to scoring and allocation.
type Deal struct {
	ID     uuid.UUID
	LeadID uuid.UUID
	Stage  string
	Value  float64
}

// Invoice is a billing record, read-only input to scoring.
type Invoice struct {
	ID     uuid.UUID
	LeadID uuid.UUID
	Status string
	Total  float64
}

// ListInteractions returns all interactions for a lead, newest first.
func (r *Repository) ListInteractions(ctx context.Context, tenantID, leadID uuid.UUID) ([]Interaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, type, occurred_at
		FROM interactions
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY occurred_at DESC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Interaction, 0)
	for rows.Next() {
		var item Interaction
		if err := rows.Scan(&item.ID, &item.LeadID, &item.Type, &item.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListDeals returns all deals for a lead.
func (r *Repository) ListDeals(ctx context.Context, tenantID, leadID uuid.UUID) ([]Deal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, stage, value
		FROM deals
		WHERE lead_id = $1 AND tenant_id = $2
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Deal, 0)
	for rows.Next() {
		var item Deal
		if err := rows.Scan(&item.ID, &item.LeadID, &item.Stage, &item.Value); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListInvoices returns all invoices for a lead.
func (r *Repository) ListInvoices(ctx context.Context, tenantID, leadID uuid.UUID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, status, total
		FROM invoices
		WHERE lead_id = $1 AND tenant_id = $2
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Invoice, 0)
	for rows.Next() {
		var item Invoice
		if err := rows.Scan(&item.ID, &item.LeadID, &item.Status, &item.Total); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
