package usecase

import (
	"context"
	"time"

	"agenttrust/internal/domain"
)

// CryptoService is the engine's view of the canonicalization and signature
// primitives.
type CryptoService interface {
	Canonicalize(v any) ([]byte, error)
	CanonicalizePayload(doc domain.Document, blocks []string) ([]byte, error)
	DecodeBase64(value string) ([]byte, error)
	RawKeyFromPEM(pemText string) ([]byte, error)
	VerifyEd25519(payload, signature, rawKey []byte) bool
	SHA256Hex(data []byte) string
}

// KeyFetcher retrieves public-key PEM text from a URL.
type KeyFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PublicKeyResolver lets a caller supply key material directly; when set,
// the engine performs no network call of its own.
type PublicKeyResolver func(ctx context.Context, url string) (string, error)

type AgentRepository interface {
	Create(ctx context.Context, agent domain.Agent) (domain.Agent, error)
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	Delete(ctx context.Context, id string) error
}

type ReportRepository interface {
	Put(ctx context.Context, report domain.AgentReport) (domain.AgentReport, error)
	LatestByAgent(ctx context.Context, agentID string) (*domain.AgentReport, error)
}

// ReportCache holds composed reports keyed by document identity.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.ValidationReport, bool, error)
	Put(ctx context.Context, key string, report domain.ValidationReport, ttl time.Duration) error
}

// PolicyGate evaluates a composed report into a listing decision.
type PolicyGate interface {
	Evaluate(ctx context.Context, report domain.ValidationReport) (domain.PolicyDecision, error)
}

// Notifier is told about verification regressions found by the crawler.
type Notifier interface {
	NotifyRegression(ctx context.Context, agent domain.Agent, report domain.ValidationReport) error
}
