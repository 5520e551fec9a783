package sign

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"agenttrust/internal/domain"
	cryptoinfra "agenttrust/internal/infra/crypto"
)

// Options controls what gets signed and how the trust section is filled in.
type Options struct {
	SignedBlocks  []string
	PublicKeyHint string
	TrustLevel    string
	CreatedAt     time.Time
}

// GenerateKeyPair returns a fresh Ed25519 key pair with the public half
// rendered as SPKI PEM, the form the verifier consumes.
func GenerateKeyPair() (publicPEM string, private ed25519.PrivateKey, err error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}
	publicPEM, err = cryptoinfra.EncodePublicKeyPEM(public)
	if err != nil {
		return "", nil, err
	}
	return publicPEM, private, nil
}

// Sign returns a copy of doc carrying trust and signature sections whose
// signature verifies against the canonical payload of the signed blocks.
// The trust section is written before canonicalization so that listing
// "trust" in SignedBlocks covers the final section content.
func Sign(doc domain.Document, private ed25519.PrivateKey, opts Options) (domain.Document, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, errors.New("sign: private key must be 64 bytes")
	}
	if len(opts.SignedBlocks) == 0 {
		return nil, errors.New("sign: at least one signed block is required")
	}

	signed := make(domain.Document, len(doc)+2)
	for key, value := range doc {
		signed[key] = value
	}

	trust := map[string]any{
		"signed_blocks": toAnySlice(opts.SignedBlocks),
		"algorithm":     domain.AlgorithmEd25519,
	}
	if opts.PublicKeyHint != "" {
		trust["public_key_hint"] = opts.PublicKeyHint
	}
	if opts.TrustLevel != "" {
		trust["trust_level"] = opts.TrustLevel
	}
	signed[domain.SectionTrust] = trust

	payload, err := cryptoinfra.CanonicalizePayload(signed, opts.SignedBlocks)
	if err != nil {
		return nil, err
	}

	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	signature := ed25519.Sign(private, payload)
	signed[domain.SectionSignature] = map[string]any{
		"value":      base64.StdEncoding.EncodeToString(signature),
		"created_at": createdAt.Format(time.RFC3339),
	}
	return signed, nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
