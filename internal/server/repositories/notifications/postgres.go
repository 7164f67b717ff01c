// Package notifications provides the PostgreSQL-backed repository for
// outbound message records.
package notifications

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
)

// PostgresRepository implements notification storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (id, envelope_id, signer_id, subject, body, success, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.EnvelopeID, notification.SignerID,
		notification.Subject, notification.Body, notification.Success, notification.SentAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Notification, error) {
	query := `
		SELECT id, envelope_id, signer_id, subject, body, success, sent_at
		FROM notifications
		WHERE envelope_id = $1
		ORDER BY sent_at
	`
	rows, err := r.db.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.EnvelopeID, &n.SignerID, &n.Subject, &n.Body, &n.Success, &n.SentAt); err != nil {
			return nil, err
		}
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
