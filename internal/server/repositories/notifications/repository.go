package notifications

import (
	"context"

	"github.com/dmitrijs2005/signvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Notification, error)
}
