package models

import "time"

// Signer is one recipient of an envelope. The invite token is the sole
// authorization for the public signing flow: unguessable, unique, generated
// at envelope creation and never reused. Order is a sequence hint only; it
// is not enforced.
type Signer struct {
	ID          string
	EnvelopeID  string
	Name        string
	Email       string
	InviteToken string
	Order       int
	HasSigned   bool
	CreatedAt   time.Time
}
