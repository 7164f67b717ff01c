// Package audit provides the PostgreSQL-backed repository for the
// append-only audit event log.
package audit

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
)

// PostgresRepository implements audit event storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, envelope_id, signer_id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	// The payload column is JSONB NOT NULL; events without a payload store
	// an empty object rather than an explicit NULL.
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.EnvelopeID, event.SignerID,
		event.EventType, payload, event.OccurredAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, envelope_id, signer_id, event_type, payload, occurred_at
		FROM audit_events
		WHERE envelope_id = $1
		ORDER BY occurred_at
	`
	rows, err := r.db.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.EnvelopeID, &e.SignerID, &e.EventType, &e.Payload, &e.OccurredAt); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
