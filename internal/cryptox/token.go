// Package cryptox holds the cryptographic primitives of the signing
// pipeline: invite token generation and detached document signing with an
// X.509 credential.
package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// inviteTokenBytes is the entropy of an invite token. 32 bytes of a CSPRNG
// keeps capability URLs unguessable.
const inviteTokenBytes = 32

// NewInviteToken returns a URL-safe random token suitable for use as the
// sole authorization of the public signing flow.
func NewInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
