// Package envelopes provides the PostgreSQL-backed repository for envelope
// rows, including the status-guarded transition update.
package envelopes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
)

// PostgresRepository implements envelope storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, envelope *models.Envelope) error {
	query := `
		INSERT INTO envelopes (id, creator_id, subject, message, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		envelope.ID, envelope.CreatorID, envelope.Subject, envelope.Message,
		string(envelope.Status), envelope.CreatedAt, envelope.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Envelope, error) {
	query := `
		SELECT id, creator_id, subject, message, status, created_at, expires_at
		FROM envelopes
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Envelope, error) {
	query := `
		SELECT id, creator_id, subject, message, status, created_at, expires_at
		FROM envelopes
		WHERE creator_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// UpdateStatus performs the guarded transition UPDATE. Zero rows affected
// means the envelope was not in the expected source status anymore, which is
// surfaced as common.ErrInvalidTransition.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to models.Status) error {
	query := `
		UPDATE envelopes
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrInvalidTransition
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) SelectExpired(ctx context.Context, now time.Time) ([]*models.Envelope, error) {
	query := `
		SELECT id, creator_id, subject, message, status, created_at, expires_at
		FROM envelopes
		WHERE expires_at IS NOT NULL
		  AND expires_at < $1
		  AND status NOT IN ($2, $3)
	`
	rows, err := r.db.QueryContext(ctx, query, now, string(models.StatusCompleted), string(models.StatusVoided))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Envelope, error) {
	var e models.Envelope
	var status string
	if err := row.Scan(&e.ID, &e.CreatorID, &e.Subject, &e.Message, &status, &e.CreatedAt, &e.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	e.Status = models.Status(status)
	return &e, nil
}

func (r *PostgresRepository) scanAll(rows *sql.Rows) ([]*models.Envelope, error) {
	var result []*models.Envelope
	for rows.Next() {
		var e models.Envelope
		var status string
		if err := rows.Scan(&e.ID, &e.CreatorID, &e.Subject, &e.Message, &status, &e.CreatedAt, &e.ExpiresAt); err != nil {
			return nil, err
		}
		e.Status = models.Status(status)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
