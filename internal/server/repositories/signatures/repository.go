package signatures

import (
	"context"

	"github.com/dmitrijs2005/signvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, signature *models.Signature) error
	ListByDocument(ctx context.Context, documentID string) ([]*models.Signature, error)
	// AttachCryptoRecord stores the 0-or-1 cryptographic attestation for a
	// signature.
	AttachCryptoRecord(ctx context.Context, record *models.CryptoRecord) error
}
