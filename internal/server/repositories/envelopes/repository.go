package envelopes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/signvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, envelope *models.Envelope) error
	GetByID(ctx context.Context, id string) (*models.Envelope, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Envelope, error)
	// UpdateStatus moves an envelope from one status to another. The update
	// is guarded by the current status so concurrent transitions cannot
	// clobber each other.
	UpdateStatus(ctx context.Context, id string, from, to models.Status) error
	// SelectExpired returns envelopes whose expiration is set and in the
	// past, excluding terminal statuses.
	SelectExpired(ctx context.Context, now time.Time) ([]*models.Envelope, error)
}
