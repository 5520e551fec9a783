package crypto

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"

	"agenttrust/internal/domain"
)

const (
	pemHeader = "-----BEGIN PUBLIC KEY-----"
	pemFooter = "-----END PUBLIC KEY-----"
)

// ed25519SPKIPrefix is the fixed DER header of a PKIX-encoded Ed25519
// public key: a SubjectPublicKeyInfo naming the Ed25519 OID, followed by
// the 32 raw key bytes. No other wrapping is supported.
var ed25519SPKIPrefix = []byte{
	0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00,
}

// DecodeBase64 decodes standard base64, mapping malformed input to
// domain.ErrInvalidEncoding.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEncoding, err)
	}
	return b, nil
}

// RawKeyFromPEM extracts the raw 32 Ed25519 key bytes from a PEM text
// carrying the one supported SPKI shape. The decoded body's trailing 32
// bytes are taken at a fixed offset rather than through an ASN.1 parser;
// bodies shorter than a raw key are rejected up front.
func RawKeyFromPEM(pemText string) ([]byte, error) {
	start := strings.Index(pemText, pemHeader)
	end := strings.Index(pemText, pemFooter)
	if start < 0 || end < 0 || end < start {
		return nil, fmt.Errorf("%w: missing PEM public key markers", domain.ErrInvalidKeyFormat)
	}
	body := pemText[start+len(pemHeader) : end]
	var b64 strings.Builder
	for _, r := range body {
		switch r {
		case ' ', '\t', '\r', '\n':
		default:
			b64.WriteRune(r)
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(b64.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKeyFormat, err)
	}
	if len(decoded) < ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: decoded key body is %d bytes", domain.ErrInvalidKeyFormat, len(decoded))
	}
	return decoded[len(decoded)-ed25519.PublicKeySize:], nil
}

// EncodePublicKeyPEM renders a raw Ed25519 public key as the SPKI PEM text
// the resolver expects to fetch.
func EncodePublicKeyPEM(raw []byte) (string, error) {
	if len(raw) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: public key is %d bytes", domain.ErrInvalidKeyFormat, len(raw))
	}
	der := make([]byte, 0, len(ed25519SPKIPrefix)+len(raw))
	der = append(der, ed25519SPKIPrefix...)
	der = append(der, raw...)
	b64 := base64.StdEncoding.EncodeToString(der)
	var out strings.Builder
	out.WriteString(pemHeader)
	out.WriteByte('\n')
	for len(b64) > 64 {
		out.WriteString(b64[:64])
		out.WriteByte('\n')
		b64 = b64[64:]
	}
	out.WriteString(b64)
	out.WriteByte('\n')
	out.WriteString(pemFooter)
	out.WriteByte('\n')
	return out.String(), nil
}

// VerifyEd25519 wraps the raw key in the fixed SPKI header, imports it
// through the platform parser, and checks the signature over the payload.
// Any provider-level fault on malformed key material yields false rather
// than an error.
func VerifyEd25519(payload, signature, rawKey []byte) bool {
	if len(rawKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	der := make([]byte, 0, len(ed25519SPKIPrefix)+len(rawKey))
	der = append(der, ed25519SPKIPrefix...)
	der = append(der, rawKey...)
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return false
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return false
	}
	return ed25519.Verify(pub, payload, signature)
}
