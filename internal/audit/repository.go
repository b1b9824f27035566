// Package audit provides the strictly append-only audit trail for automated
// qualification decisions. Events are structured (type + JSON payload) and
// keyed by lead, so the trail is machine-checkable; nothing in this package
// updates or deletes an event outside the archival retention path.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded by the engine.
const (
	EventLeadQualified   = "lead_qualified"
	EventRepAssigned     = "rep_assigned"
	EventNurtureEnrolled = "nurture_enrolled"
)

// Event is one immutable audit trail entry.
type Event struct {
	ID        int64           `json:"id"`
	TenantID  uuid.UUID       `json:"tenantId"`
	LeadID    uuid.UUID       `json:"leadId"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append records one audit event. The payload is marshalled as JSON.
func (r *Repository) Append(ctx context.Context, tenantID, leadID uuid.UUID, eventType string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_events (tenant_id, lead_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, tenantID, leadID, eventType, encoded)
	return err
}

// ListByLead returns the lead's audit trail, oldest first.
func (r *Repository) ListByLead(ctx context.Context, tenantID, leadID uuid.UUID, limit int) ([]Event, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, lead_id, event_type, payload, created_at
		FROM audit_events
		WHERE tenant_id = $1 AND lead_id = $2
		ORDER BY id ASC
		LIMIT $3
	`, tenantID, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Event, 0)
	for rows.Next() {
		var item Event
		if err := rows.Scan(&item.ID, &item.TenantID, &item.LeadID, &item.EventType, &item.Payload, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListBefore returns up to limit events older than the cutoff, oldest first.
// Used by the archiver to page through expired events.
func (r *Repository) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, lead_id, event_type, payload, created_at
		FROM audit_events
		WHERE created_at < $1
		ORDER BY id ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Event, 0)
	for rows.Next() {
		var item Event
		if err := rows.Scan(&item.ID, &item.TenantID, &item.LeadID, &item.EventType, &item.Payload, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteThrough removes archived events up to and including maxID.
// Only the archiver calls this, and only after the batch is durably stored.
func (r *Repository) DeleteThrough(ctx context.Context, maxID int64, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM audit_events WHERE id <= $1 AND created_at < $2
	`, maxID, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
