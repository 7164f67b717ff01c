// Package documents provides the PostgreSQL-backed repository for document
// rows and the conversion-queue query used by the scheduler.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
)

const selectColumns = `id, envelope_id, filename, original_path, pdf_path, created_at`

// PostgresRepository implements document storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, document *models.Document) error {
	query := `
		INSERT INTO documents (id, envelope_id, filename, original_path, pdf_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		document.ID, document.EnvelopeID, document.Filename,
		document.OriginalPath, document.PDFPath, document.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE id = $1`
	var d models.Document
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.EnvelopeID, &d.Filename, &d.OriginalPath, &d.PDFPath, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE envelope_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PostgresRepository) SelectPendingConversion(ctx context.Context) ([]*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE pdf_path IS NULL ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PostgresRepository) UpdatePDFPath(ctx context.Context, id string, pdfPath string) error {
	query := `UPDATE documents SET pdf_path = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, pdfPath, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func scanAll(rows *sql.Rows) ([]*models.Document, error) {
	var result []*models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.EnvelopeID, &d.Filename, &d.OriginalPath, &d.PDFPath, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
