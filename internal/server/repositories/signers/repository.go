package signers

import (
	"context"

	"github.com/dmitrijs2005/signvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, signer *models.Signer) error
	// FindByToken resolves an invite token to its signer. Unknown tokens
	// return common.ErrorNotFound.
	FindByToken(ctx context.Context, token string) (*models.Signer, error)
	ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Signer, error)
	// MarkSigned flips has_signed false->true. The flip is the at-most-once
	// guard for concurrent submissions by the same signer: a second call
	// affects no rows and reports it.
	MarkSigned(ctx context.Context, id string) (bool, error)
}
