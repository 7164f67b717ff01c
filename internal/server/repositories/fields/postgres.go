// Package fields provides the PostgreSQL-backed repository for signature
// placement fields.
package fields

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
)

// PostgresRepository implements field storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, field *models.Field) error {
	query := `
		INSERT INTO fields (id, document_id, signer_id, field_type, page, x, y, width, height, required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.db.ExecContext(ctx, query,
		field.ID, field.DocumentID, field.SignerID, field.FieldType,
		field.Page, field.X, field.Y, field.Width, field.Height, field.Required); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindForSigner(ctx context.Context, documentID, signerID string) (*models.Field, error) {
	query := `
		SELECT id, document_id, signer_id, field_type, page, x, y, width, height, required
		FROM fields
		WHERE document_id = $1 AND signer_id = $2
		LIMIT 1
	`
	var f models.Field
	err := r.db.QueryRowContext(ctx, query, documentID, signerID).
		Scan(&f.ID, &f.DocumentID, &f.SignerID, &f.FieldType, &f.Page, &f.X, &f.Y, &f.Width, &f.Height, &f.Required)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &f, nil
}
