package domain

// StepOutcome is the recorded result of one verification stage.
type StepOutcome string

const (
	StepSuccess StepOutcome = "success"
	StepFailed  StepOutcome = "failed"
	StepSkipped StepOutcome = "skipped"
)

// Verification step names, in the order the engine runs them.
const (
	StepCheckTrustSection     = "Check trust section"
	StepCheckSignatureSection = "Check signature section"
	StepVerifyAlgorithm       = "Verify algorithm"
	StepDecodeSignature       = "Decode signature"
	StepCheckSignedBlocks     = "Check signed_blocks"
	StepBuildCanonicalPayload = "Build canonical payload"
	StepCheckPublicKeyHint    = "Check public_key_hint"
	StepResolvePublicKey      = "Resolve public key"
	StepValidatePEMFormat     = "Validate PEM format"
	StepParsePublicKey        = "Parse public key"
	StepVerifySignature       = "Verify signature"
)

// VerificationStep is one ordered entry of the diagnostic trace.
type VerificationStep struct {
	Name    string         `json:"name"`
	Outcome StepOutcome    `json:"outcome"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// IssueSeverity classifies a detected interoperability issue.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityWarning  IssueSeverity = "warning"
	SeverityInfo     IssueSeverity = "info"
)

// Detected issue codes.
const (
	IssueInvalidSignatureLength = "INVALID_SIGNATURE_LENGTH"
	IssueEmptyNestedContent     = "EMPTY_NESTED_CONTENT"
	IssueEmptyArrayItems        = "EMPTY_ARRAY_ITEMS"
	IssueOldSignature           = "OLD_SIGNATURE"
	IssueMissingSignedBlock     = "MISSING_SIGNED_BLOCK"
	IssueSigningBugLikelyCause  = "SIGNING_BUG_LIKELY_CAUSE"
)

// DetectedIssue is a heuristically detected interoperability problem. Issues
// are advisory: they never change the pass/fail verdict by themselves.
type DetectedIssue struct {
	Severity       IssueSeverity `json:"severity"`
	Code           string        `json:"code"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Recommendation string        `json:"recommendation,omitempty"`
}

// CanonicalPayload describes the exact byte sequence the signature is
// computed over. Hash is the SHA-256 of the UTF-8 bytes, hex encoded; it is
// diagnostic display material, not part of the signature scheme.
type CanonicalPayload struct {
	Text       string `json:"text"`
	ByteLength int    `json:"byte_length"`
	Hash       string `json:"hash"`
}

// VerificationResult is the full output of one engine invocation.
type VerificationResult struct {
	Valid            bool               `json:"valid"`
	Error            string             `json:"error,omitempty"`
	Steps            []VerificationStep `json:"steps"`
	CanonicalPayload *CanonicalPayload  `json:"canonical_payload,omitempty"`
	DetectedIssues   []DetectedIssue    `json:"detected_issues"`
}

// HasCriticalIssue reports whether any detected issue with one of the given
// codes is critical.
func (r *VerificationResult) HasCriticalIssue(codes ...string) bool {
	for _, issue := range r.DetectedIssues {
		if issue.Severity != SeverityCritical {
			continue
		}
		for _, code := range codes {
			if issue.Code == code {
				return true
			}
		}
	}
	return false
}

// ValidationReport is the external-facing shape produced by the composing
// validator: structural results plus the engine result folded into one score.
type ValidationReport struct {
	Valid                bool                `json:"valid"`
	Score                int                 `json:"score"`
	Errors               []string            `json:"errors"`
	Warnings             []string            `json:"warnings"`
	SignatureValid       *bool               `json:"signature_valid,omitempty"`
	SignatureDiagnostics *VerificationResult `json:"signature_diagnostics,omitempty"`
}
