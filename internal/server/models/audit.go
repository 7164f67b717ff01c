package models

import "time"

// Audit event types emitted by the core. Status transitions always use
// EventStatusChanged with a {"from": ..., "to": ...} payload.
const (
	EventStatusChanged     = "status_changed"
	EventSignatureCaptured = "signature_captured"
	EventInviteOpened      = "invite_opened"
	EventArtifactSealed    = "artifact_sealed"
	EventArtifactArchived  = "artifact_archived"
)

// AuditEvent is an append-only record tied to an envelope and optionally to
// a signer. Payload is free-form JSON.
type AuditEvent struct {
	ID         string
	EnvelopeID string
	SignerID   *string
	EventType  string
	Payload    []byte
	OccurredAt time.Time
}
