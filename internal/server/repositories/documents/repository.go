package documents

import (
	"context"

	"github.com/dmitrijs2005/signvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Document, error)
	// SelectPendingConversion returns documents without a PDF artifact yet.
	SelectPendingConversion(ctx context.Context) ([]*models.Document, error)
	// UpdatePDFPath advances the document's PDF artifact reference.
	UpdatePDFPath(ctx context.Context, id string, pdfPath string) error
}
