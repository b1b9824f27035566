package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssignLead gives the lead to the rep and bumps the rep's load counter in
// one transaction. Without override the leads update is conditional on the
// lead being unassigned, so two concurrent assignments cannot both succeed:
// the loser's UPDATE matches zero rows and no load counter moves.
func (r *Repository) AssignLead(ctx context.Context, tenantID, leadID, repID uuid.UUID, override bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var previousRepID *uuid.UUID
	if override {
		// The row lock serializes concurrent overrides on the same lead.
		err = tx.QueryRow(ctx, `
			SELECT assigned_rep_id FROM leads
			WHERE id = $1 AND tenant_id = $2
			FOR UPDATE
		`, leadID, tenantID).Scan(&previousRepID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE leads SET assigned_rep_id = $3, updated_at = now()
			WHERE id = $1 AND tenant_id = $2
		`, leadID, tenantID, repID); err != nil {
			return err
		}
	} else {
		result, err := tx.Exec(ctx, `
			UPDATE leads SET assigned_rep_id = $3, updated_at = now()
			WHERE id = $1 AND tenant_id = $2 AND assigned_rep_id IS NULL
		`, leadID, tenantID, repID)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			// Distinguish a missing lead from a lost race.
			var exists bool
			if err := tx.QueryRow(ctx, `
				SELECT true FROM leads WHERE id = $1 AND tenant_id = $2
			`, leadID, tenantID).Scan(&exists); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
			return ErrAlreadyAssigned
		}
	}

	if previousRepID != nil && *previousRepID != repID {
		if _, err := tx.Exec(ctx, `
			UPDATE sales_reps
			SET assigned_leads_count = GREATEST(assigned_leads_count - 1, 0)
			WHERE id = $1 AND tenant_id = $2
		`, *previousRepID, tenantID); err != nil {
			return err
		}
	}

	if previousRepID == nil || *previousRepID != repID {
		if _, err := tx.Exec(ctx, `
			UPDATE sales_reps SET assigned_leads_count = assigned_leads_count + 1
			WHERE id = $1 AND tenant_id = $2
		`, repID, tenantID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
