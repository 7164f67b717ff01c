package models

import "time"

// Signature records one signing event by one signer on one document. It
// holds the raw signature image bytes and/or a stamp image reference.
// AppliedAt is set once and immutable thereafter.
type Signature struct {
	ID         string
	DocumentID string
	SignerID   string
	FieldID    *string
	ImageData  []byte
	StampPath  *string
	AppliedAt  time.Time
}

// CryptoRecord is the permanent cryptographic attestation over the document
// state at signing time. At most one exists per signature.
type CryptoRecord struct {
	ID                 string
	SignatureID        string
	Algorithm          string
	CertificateSubject string
	SignedAt           time.Time
	SignatureBytes     []byte
}
