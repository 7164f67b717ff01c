package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/signvault/internal/common"
)

// Credential is a loaded signing identity: an X.509 certificate and the
// matching private key.
type Credential struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
}

// DetachedSignature is the result of signing a document digest. It carries
// everything persisted into a crypto record.
type DetachedSignature struct {
	Algorithm          string
	CertificateSubject string
	Bytes              []byte
}

// LoadCredential reads a PEM certificate and private key pair from disk.
// A missing credential is a normal, tolerated condition for the pipeline;
// callers degrade rather than fail.
func LoadCredential(certFile, keyFile string) (*Credential, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	cert, err := parseCertificate(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	return &Credential{Certificate: cert, Key: key}, nil
}

// SignFile computes a detached SHA-256 signature over the file contents.
// RSA keys sign with PKCS #1 v1.5, EC keys with ASN.1 ECDSA.
func (c *Credential) SignFile(path string) (*DetachedSignature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open artifact: %w", common.ErrCryptoSigningFailed, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("%w: hash artifact: %w", common.ErrCryptoSigningFailed, err)
	}
	digest := h.Sum(nil)

	var algorithm string
	switch c.Key.Public().(type) {
	case *rsa.PublicKey:
		algorithm = "rsa-sha256"
	case *ecdsa.PublicKey:
		algorithm = "ecdsa-sha256"
	default:
		return nil, fmt.Errorf("%w: unsupported key type", common.ErrCryptoSigningFailed)
	}

	sig, err := c.Key.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %w", common.ErrCryptoSigningFailed, err)
	}

	return &DetachedSignature{
		Algorithm:          algorithm,
		CertificateSubject: c.Certificate.Subject.String(),
		Bytes:              sig,
	}, nil
}

func parseCertificate(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("no certificate PEM block")
	}
	return x509.ParseCertificate(block.Bytes)
}

func parsePrivateKey(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no private key PEM block")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, errors.New("key does not implement crypto.Signer")
		}
		return signer, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported private key format")
}
