package fields

import (
	"context"

	"github.com/dmitrijs2005/signvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, field *models.Field) error
	// FindForSigner returns the placement field for a document/signer pair,
	// or common.ErrorNotFound when none was declared.
	FindForSigner(ctx context.Context, documentID, signerID string) (*models.Field, error)
}
