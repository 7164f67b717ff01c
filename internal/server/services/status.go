// Package services contains server-side business logic for the envelope
// lifecycle: creation and sending, the public invite signing flow, and the
// background maintenance jobs.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// setStatus moves an envelope to a new lifecycle status. The status update
// and its audit event are written in one transaction, so every real
// transition is recorded exactly once. A same-status target is a no-op and
// produces no audit event; an illegal target returns
// common.ErrInvalidTransition without touching the database.
//
// On success the in-memory envelope is updated to the new status.
func setStatus(ctx context.Context, db *sql.DB, m repomanager.RepositoryManager, env *models.Envelope, to models.Status) error {
	from := env.Status
	if to == from {
		return nil
	}
	if !models.CanTransition(from, to) {
		return common.ErrInvalidTransition
	}

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return applyTransition(ctx, tx, m, env.ID, from, to)
	})
	if err != nil {
		return err
	}

	env.Status = to
	return nil
}

// applyTransition performs the guarded status update and appends the
// matching audit event against the given handle, which may be an open
// transaction. Callers validate the transition beforehand.
func applyTransition(ctx context.Context, tx dbx.DBTX, m repomanager.RepositoryManager, envelopeID string, from, to models.Status) error {
	payload, err := json.Marshal(map[string]string{"from": string(from), "to": string(to)})
	if err != nil {
		return err
	}
	if err := m.Envelopes(tx).UpdateStatus(ctx, envelopeID, from, to); err != nil {
		return err
	}
	return m.Audit(tx).Append(ctx, &models.AuditEvent{
		ID:         uuid.New().String(),
		EnvelopeID: envelopeID,
		EventType:  models.EventStatusChanged,
		Payload:    payload,
		OccurredAt: time.Now(),
	})
}
