package models

import "time"

// Notification records one attempted outbound message. It exists for audit
// only: delivery failures flip Success to false but never block the
// workflow step that triggered the send.
type Notification struct {
	ID         string
	EnvelopeID *string
	SignerID   *string
	Subject    string
	Body       string
	Success    bool
	SentAt     time.Time
}
