package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"agenttrust/internal/domain"
)

// Service is the stateless crypto facade injected into the verification
// use case.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Canonicalize(v any) ([]byte, error) {
	return Canonicalize(v)
}

func (s *Service) CanonicalizePayload(doc domain.Document, blocks []string) ([]byte, error) {
	return CanonicalizePayload(doc, blocks)
}

func (s *Service) DecodeBase64(value string) ([]byte, error) {
	return DecodeBase64(value)
}

func (s *Service) RawKeyFromPEM(pemText string) ([]byte, error) {
	return RawKeyFromPEM(pemText)
}

func (s *Service) VerifyEd25519(payload, signature, rawKey []byte) bool {
	return VerifyEd25519(payload, signature, rawKey)
}

func (s *Service) SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
