// Package signatures provides the PostgreSQL-backed repository for signature
// rows and their optional crypto records.
package signatures

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
)

// PostgresRepository implements signature storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, signature *models.Signature) error {
	query := `
		INSERT INTO signatures (id, document_id, signer_id, field_id, image_data, stamp_path, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		signature.ID, signature.DocumentID, signature.SignerID, signature.FieldID,
		signature.ImageData, signature.StampPath, signature.AppliedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.Signature, error) {
	query := `
		SELECT id, document_id, signer_id, field_id, image_data, stamp_path, applied_at
		FROM signatures
		WHERE document_id = $1
		ORDER BY applied_at
	`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Signature
	for rows.Next() {
		var s models.Signature
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.SignerID, &s.FieldID, &s.ImageData, &s.StampPath, &s.AppliedAt); err != nil {
			return nil, err
		}
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) AttachCryptoRecord(ctx context.Context, record *models.CryptoRecord) error {
	query := `
		INSERT INTO crypto_records (id, signature_id, algorithm, certificate_subject, signed_at, signature_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.SignatureID, record.Algorithm,
		record.CertificateSubject, record.SignedAt, record.SignatureBytes); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
