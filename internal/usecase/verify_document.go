package usecase

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"agenttrust/internal/domain"
)

// VerifyOptions selects how the public key is obtained.
type VerifyOptions struct {
	// PublicKeyResolver, when set, is called with trust.public_key_hint and
	// must return PEM text. The engine performs no network call in that case.
	PublicKeyResolver PublicKeyResolver
}

// DocumentVerifier reconstructs the canonical payload a document's signature
// should cover, verifies the Ed25519 signature against it, and produces an
// ordered diagnostic trace plus heuristically detected interoperability
// issues. It holds no state across calls and is safe for concurrent use.
type DocumentVerifier struct {
	Crypto CryptoService
	Keys   KeyFetcher
	Now    func() time.Time
}

// Verify runs the named steps in fixed order, appending one step entry per
// stage. The first required-step failure terminates the sequence; issues
// computed from already-gathered data are still returned.
func (v *DocumentVerifier) Verify(ctx context.Context, doc domain.Document, opts VerifyOptions) domain.VerificationResult {
	run := &verifyRun{verifier: v, result: domain.VerificationResult{DetectedIssues: []domain.DetectedIssue{}}}

	trust, ok := doc.Trust()
	if !ok {
		return run.fail(domain.StepCheckTrustSection, "Trust section is missing")
	}
	run.succeed(domain.StepCheckTrustSection, "Trust section present")

	sig, ok := doc.Signature()
	if !ok {
		return run.fail(domain.StepCheckSignatureSection, "Signature section is missing")
	}
	run.succeed(domain.StepCheckSignatureSection, "Signature section present")

	if trust.Algorithm != domain.AlgorithmEd25519 {
		return run.fail(domain.StepVerifyAlgorithm,
			fmt.Sprintf("Unsupported algorithm: %q (only Ed25519 is supported)", trust.Algorithm))
	}
	run.succeed(domain.StepVerifyAlgorithm, "Algorithm is Ed25519")

	if sig.Value == "" {
		return run.fail(domain.StepDecodeSignature, "Signature value is missing")
	}
	sigBytes, err := v.Crypto.DecodeBase64(sig.Value)
	if err != nil {
		return run.fail(domain.StepDecodeSignature, "Signature value is not valid base64")
	}
	if len(sigBytes) != ed25519.SignatureSize {
		run.addIssue(domain.DetectedIssue{
			Severity:    domain.SeverityCritical,
			Code:        domain.IssueInvalidSignatureLength,
			Title:       "Invalid signature length",
			Description: fmt.Sprintf("Decoded signature is %d bytes; Ed25519 signatures are exactly %d bytes.", len(sigBytes), ed25519.SignatureSize),
			Recommendation: "Check that the signer base64-encodes the raw 64-byte signature, " +
				"not a hex string or a detached envelope.",
		})
		return run.fail(domain.StepDecodeSignature,
			fmt.Sprintf("Invalid signature length: %d bytes (expected %d)", len(sigBytes), ed25519.SignatureSize))
	}
	run.succeed(domain.StepDecodeSignature, "Signature decoded (64 bytes)")

	if len(trust.SignedBlocks) == 0 {
		return run.fail(domain.StepCheckSignedBlocks, "trust.signed_blocks is empty")
	}
	run.succeed(domain.StepCheckSignedBlocks,
		fmt.Sprintf("signed_blocks lists %d section(s)", len(trust.SignedBlocks)))

	payload, err := v.Crypto.CanonicalizePayload(doc, trust.SignedBlocks)
	if err != nil {
		return run.fail(domain.StepBuildCanonicalPayload, fmt.Sprintf("Canonicalization failed: %v", err))
	}
	run.result.CanonicalPayload = &domain.CanonicalPayload{
		Text:       string(payload),
		ByteLength: len(payload),
		Hash:       v.Crypto.SHA256Hex(payload),
	}
	run.step(domain.VerificationStep{
		Name:    domain.StepBuildCanonicalPayload,
		Outcome: domain.StepSuccess,
		Message: fmt.Sprintf("Canonical payload built (%d bytes)", len(payload)),
		Details: map[string]any{"hash": run.result.CanonicalPayload.Hash},
	})

	// The payload exists; the signer-bug heuristics can run now, whatever
	// the remaining steps decide.
	run.addIssue(DetectIssues(doc, trust, sig, v.now())...)

	if trust.PublicKeyHint == "" {
		return run.fail(domain.StepCheckPublicKeyHint, "trust.public_key_hint is missing")
	}
	run.succeed(domain.StepCheckPublicKeyHint, "public_key_hint present")

	pemText, err := v.resolveKey(ctx, trust.PublicKeyHint, opts)
	if err != nil {
		return run.fail(domain.StepResolvePublicKey, fmt.Sprintf("Failed to resolve public key: %v", err))
	}
	run.succeed(domain.StepResolvePublicKey, "Public key resolved")

	if !containsPEMMarker(pemText) {
		return run.fail(domain.StepValidatePEMFormat, "Resolved key is not PEM: BEGIN PUBLIC KEY marker not found")
	}
	run.succeed(domain.StepValidatePEMFormat, "PEM markers present")

	rawKey, err := v.Crypto.RawKeyFromPEM(pemText)
	if err != nil {
		return run.fail(domain.StepParsePublicKey, fmt.Sprintf("Failed to parse public key: %v", err))
	}
	run.succeed(domain.StepParsePublicKey, "Public key parsed (32 bytes)")

	if !v.Crypto.VerifyEd25519(payload, sigBytes, rawKey) {
		if run.result.HasCriticalIssue(domain.IssueEmptyNestedContent, domain.IssueEmptyArrayItems) {
			run.addIssue(domain.DetectedIssue{
				Severity: domain.SeverityInfo,
				Code:     domain.IssueSigningBugLikelyCause,
				Title:    "Signer-side canonicalization bug is the likely cause",
				Description: "The signature does not match, and the signed sections show the shape of the " +
					"known stringify-with-key-allowlist signer bug. The signer most likely signed a payload " +
					"with nested content silently dropped.",
				Recommendation: "Ask the publisher to re-sign with a canonicalizer that preserves nested keys.",
			})
		}
		return run.fail(domain.StepVerifySignature, "Signature verification failed")
	}

	run.succeed(domain.StepVerifySignature, "Signature is valid")
	run.result.Valid = true
	return run.result
}

func (v *DocumentVerifier) resolveKey(ctx context.Context, url string, opts VerifyOptions) (string, error) {
	if opts.PublicKeyResolver != nil {
		return opts.PublicKeyResolver(ctx, url)
	}
	if v.Keys == nil {
		return "", fmt.Errorf("no key fetcher configured")
	}
	return v.Keys.Fetch(ctx, url)
}

func (v *DocumentVerifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now().UTC()
}

func containsPEMMarker(text string) bool {
	return strings.Contains(text, "BEGIN PUBLIC KEY")
}

type verifyRun struct {
	verifier *DocumentVerifier
	result   domain.VerificationResult
}

func (r *verifyRun) step(s domain.VerificationStep) {
	r.result.Steps = append(r.result.Steps, s)
}

func (r *verifyRun) succeed(name, message string) {
	r.step(domain.VerificationStep{Name: name, Outcome: domain.StepSuccess, Message: message})
}

func (r *verifyRun) fail(name, message string) domain.VerificationResult {
	r.step(domain.VerificationStep{Name: name, Outcome: domain.StepFailed, Message: message})
	r.result.Valid = false
	r.result.Error = message
	return r.result
}

func (r *verifyRun) addIssue(issues ...domain.DetectedIssue) {
	r.result.DetectedIssues = append(r.result.DetectedIssues, issues...)
}
