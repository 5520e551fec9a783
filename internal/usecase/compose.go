package usecase

import (
	"context"

	"agenttrust/internal/domain"
)

const (
	scoreBase               = 100
	scorePerError           = 20
	scorePerWarning         = 5
	scoreSignatureValid     = 10
	scoreSignatureInvalid   = 50
	scoreNoTrustOrSignature = 30
)

// ValidateOptions controls one composed validation.
type ValidateOptions struct {
	// SkipVerification bypasses the signature engine entirely; the score
	// then carries no signature adjustment at all.
	SkipVerification  bool
	PublicKeyResolver PublicKeyResolver
}

// DocumentValidator combines structural validation with the signature
// engine into the external-facing report and score.
type DocumentValidator struct {
	Verifier   *DocumentVerifier
	Structural *StructuralValidator
}

func (v *DocumentValidator) Validate(ctx context.Context, doc domain.Document, opts ValidateOptions) domain.ValidationReport {
	report := domain.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}
	if v.Structural != nil {
		errs, warnings := v.Structural.Validate(doc)
		report.Errors = append(report.Errors, errs...)
		report.Warnings = append(report.Warnings, warnings...)
	}

	score := scoreBase
	score -= scorePerError * len(report.Errors)

	if opts.SkipVerification {
		score -= scorePerWarning * len(report.Warnings)
		report.Score = clampScore(score)
		report.Valid = len(report.Errors) == 0
		return report
	}

	_, hasTrust := doc.Trust()
	_, hasSignature := doc.Signature()
	if !hasTrust && !hasSignature {
		score -= scoreNoTrustOrSignature
		score -= scorePerWarning * len(report.Warnings)
		report.Score = clampScore(score)
		report.Valid = len(report.Errors) == 0
		return report
	}

	verification := v.Verifier.Verify(ctx, doc, VerifyOptions{PublicKeyResolver: opts.PublicKeyResolver})
	report.SignatureDiagnostics = &verification
	report.SignatureValid = &verification.Valid

	// Heuristic warnings become caller-visible warnings; a failed
	// verification counts as a structural-style error.
	for _, issue := range verification.DetectedIssues {
		if issue.Severity == domain.SeverityWarning {
			report.Warnings = append(report.Warnings, issue.Title)
		}
	}
	if verification.Valid {
		score += scoreSignatureValid
	} else {
		score -= scoreSignatureInvalid
		if verification.Error != "" {
			report.Errors = append(report.Errors, "signature verification failed: "+verification.Error)
		}
	}

	score -= scorePerWarning * len(report.Warnings)
	report.Score = clampScore(score)
	report.Valid = len(report.Errors) == 0 && verification.Valid
	return report
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
