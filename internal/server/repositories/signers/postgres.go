// Package signers provides the PostgreSQL-backed repository for signer rows,
// including invite-token resolution for the public signing flow.
package signers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
)

const selectColumns = `id, envelope_id, name, email, invite_token, sign_order, has_signed, created_at`

// PostgresRepository implements signer storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, signer *models.Signer) error {
	query := `
		INSERT INTO signers (id, envelope_id, name, email, invite_token, sign_order, has_signed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.ExecContext(ctx, query,
		signer.ID, signer.EnvelopeID, signer.Name, signer.Email,
		signer.InviteToken, signer.Order, signer.HasSigned, signer.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.Signer, error) {
	query := `SELECT ` + selectColumns + ` FROM signers WHERE invite_token = $1`
	var s models.Signer
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&s.ID, &s.EnvelopeID, &s.Name, &s.Email, &s.InviteToken, &s.Order, &s.HasSigned, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Signer, error) {
	query := `SELECT ` + selectColumns + ` FROM signers WHERE envelope_id = $1 ORDER BY sign_order`
	rows, err := r.db.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Signer
	for rows.Next() {
		var s models.Signer
		if err := rows.Scan(&s.ID, &s.EnvelopeID, &s.Name, &s.Email, &s.InviteToken, &s.Order, &s.HasSigned, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkSigned flips has_signed only when it is still false. The returned bool
// is true when this call performed the flip.
func (r *PostgresRepository) MarkSigned(ctx context.Context, id string) (bool, error) {
	query := `UPDATE signers SET has_signed = TRUE WHERE id = $1 AND has_signed = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}
