// Package common defines shared constants and sentinel errors used across
// SignVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Lifecycle errors. ErrInvalidTransition marks a status change that is
	// not present in the envelope transition table; it is never retried.
	// ErrInvalidStatus marks an operation attempted in the wrong lifecycle
	// phase (e.g. signing a voided envelope).
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid envelope status")

	// Pipeline errors. Conversion failures keep pdf_path unset so the
	// document is retried on the next scheduler pass. Crypto and
	// notification failures degrade the flow but never abort it.
	ErrConversionFailed    = errors.New("document conversion failed")
	ErrCryptoSigningFailed = errors.New("cryptographic signing failed")
	ErrNotificationFailed  = errors.New("notification delivery failed")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
)
