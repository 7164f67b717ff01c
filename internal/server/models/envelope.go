// Package models defines the server-side data model for envelopes and the
// signing pipeline: envelopes, documents, signers, fields, signatures,
// crypto records, audit events and notification records.
package models

import (
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
)

// Status is the envelope lifecycle state. The set is closed: anything not
// present in the transition table below is an illegal move.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusSigned    Status = "signed"
	StatusCompleted Status = "completed"
	StatusVoided    Status = "voided"
)

// DefaultEnvelopeTTL is the expiration window applied on envelope creation
// when no explicit TTL is configured.
const DefaultEnvelopeTTL = 72 * time.Hour

// transitions is the static adjacency table of legal status moves.
// Completed and voided are terminal.
var transitions = map[Status][]Status{
	StatusDraft:  {StatusSent, StatusVoided},
	StatusSent:   {StatusViewed, StatusSigned, StatusVoided},
	StatusViewed: {StatusSigned, StatusVoided},
	StatusSigned: {StatusCompleted, StatusVoided},
}

// CanTransition reports whether moving from one status to another is legal.
// Same-status "moves" are not transitions and return false; callers treat
// them as no-ops before consulting the table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusViewed, StatusSigned, StatusCompleted, StatusVoided:
		return true
	}
	return false
}

// Envelope is a signing request: a subject, optional message, one or more
// documents and the signers they are routed to. Envelopes are never deleted,
// only voided.
type Envelope struct {
	ID        string
	CreatorID string
	Subject   string
	Message   string
	Status    Status
	CreatedAt time.Time
	// ExpiresAt is set once by EnsureExpiration and immutable afterwards.
	ExpiresAt *time.Time
}

// EnsureExpiration sets ExpiresAt to now+ttl if it is not set yet.
// The first call wins; later calls are no-ops.
func (e *Envelope) EnsureExpiration(ttl time.Duration) {
	if e.ExpiresAt != nil {
		return
	}
	t := time.Now().Add(ttl)
	e.ExpiresAt = &t
}

// Transition applies a status change after validating it against the table.
// A same-status target is a no-op and returns nil without mutating; an
// illegal target returns common.ErrInvalidTransition.
func (e *Envelope) Transition(to Status) error {
	if to == e.Status {
		return nil
	}
	if !CanTransition(e.Status, to) {
		return common.ErrInvalidTransition
	}
	e.Status = to
	return nil
}
