package audit

import (
	"context"

	"github.com/dmitrijs2005/signvault/internal/server/models"
)

type Repository interface {
	// Append adds one event to the envelope's append-only log.
	Append(ctx context.Context, event *models.AuditEvent) error
	ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.AuditEvent, error)
}
