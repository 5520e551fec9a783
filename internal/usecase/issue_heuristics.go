package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"agenttrust/internal/domain"
)

const (
	// A section has to serialize past this length before the collapse
	// heuristic is meaningful at all.
	minSectionLengthForCollapse = 50
	// Collapse threshold: the allowlist rendering coming in under 30% of
	// the full rendering marks the known signer bug.
	collapseRatio = 0.30

	oldSignatureAge = 365 * 24 * time.Hour
)

// DetectIssues runs the post-hoc interoperability heuristics over the signed
// sections. The collapse heuristics simulate the known signer bug: passing a
// sorted top-level key list as a stringify allowlist, which in JavaScript
// filters keys at every depth and silently drops nested content. Sections
// that would collapse under it get flagged. All output is advisory; nothing
// here touches the pass/fail verdict.
func DetectIssues(doc domain.Document, trust domain.TrustSection, sig domain.SignatureSection, now time.Time) []domain.DetectedIssue {
	var issues []domain.DetectedIssue

	for _, name := range trust.SignedBlocks {
		section, ok := doc.Section(name)
		if !ok {
			issues = append(issues, domain.DetectedIssue{
				Severity:    domain.SeverityWarning,
				Code:        domain.IssueMissingSignedBlock,
				Title:       "Signed block is missing",
				Description: fmt.Sprintf("trust.signed_blocks names %q but the document has no such section.", name),
				Recommendation: "Remove the name from signed_blocks or publish the section; " +
					"verifiers skip absent sections, so the signer and verifier may disagree on the payload.",
			})
			continue
		}
		issues = append(issues, detectCollapse(name, section)...)
	}

	if sig.CreatedAt != "" {
		if created, err := time.Parse(time.RFC3339, sig.CreatedAt); err == nil {
			if now.Sub(created) > oldSignatureAge {
				issues = append(issues, domain.DetectedIssue{
					Severity:       domain.SeverityWarning,
					Code:           domain.IssueOldSignature,
					Title:          "Signature is more than a year old",
					Description:    fmt.Sprintf("signature.created_at is %s; the document may be stale.", sig.CreatedAt),
					Recommendation: "Re-sign the document to refresh its trust metadata.",
				})
			}
		}
	}

	return issues
}

func detectCollapse(name string, section any) []domain.DetectedIssue {
	_, isObject := asObject(section)
	arr, isArray := section.([]any)
	if !isObject && !isArray {
		return nil
	}

	full, err := json.Marshal(section)
	if err != nil {
		return nil
	}
	collapsed := allowlistRender(section)

	var issues []domain.DetectedIssue
	if len(full) > minSectionLengthForCollapse && float64(len(collapsed)) < collapseRatio*float64(len(full)) {
		issues = append(issues, domain.DetectedIssue{
			Severity: domain.SeverityCritical,
			Code:     domain.IssueEmptyNestedContent,
			Title:    "Nested content would be dropped by a buggy signer",
			Description: fmt.Sprintf("Section %q shrinks from %d to %d bytes under the stringify-with-key-allowlist "+
				"idiom; a signer using it signed a payload with the nested content missing.", name, len(full), len(collapsed)),
			Recommendation: "If verification fails, have the publisher re-sign with a recursive canonicalizer.",
		})
	}

	if isArray && len(arr) > 0 {
		if first, ok := asObject(arr[0]); ok && len(first) > 0 && arrayCollapsesToEmptyItems(arr) {
			issues = append(issues, domain.DetectedIssue{
				Severity: domain.SeverityCritical,
				Code:     domain.IssueEmptyArrayItems,
				Title:    "Array items would collapse to empty objects",
				Description: fmt.Sprintf("Every item of section %q loses all of its keys under the "+
					"stringify-with-key-allowlist idiom.", name),
				Recommendation: "If verification fails, have the publisher re-sign with a recursive canonicalizer.",
			})
		}
	}
	return issues
}

// allowlistRender reproduces JSON.stringify(value, allowlist) where the
// allowlist is the value's sorted top-level key set: at every depth only
// keys present in that set survive. Arrays are kept, their object items
// filtered the same way.
func allowlistRender(value any) []byte {
	allow := map[string]struct{}{}
	switch v := value.(type) {
	case map[string]any:
		for k := range v {
			allow[k] = struct{}{}
		}
	case domain.Document:
		for k := range v {
			allow[k] = struct{}{}
		}
	case []any:
		// A top-level array has no keys, so the allowlist is empty and every
		// nested object renders as {}.
	default:
		b, _ := json.Marshal(v)
		return b
	}
	rendered := renderFiltered(value, allow)
	b, _ := json.Marshal(rendered)
	return b
}

func renderFiltered(value any, allow map[string]struct{}) any {
	switch v := value.(type) {
	case map[string]any:
		return filterObject(v, allow)
	case domain.Document:
		return filterObject(map[string]any(v), allow)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = renderFiltered(item, allow)
		}
		return out
	default:
		return v
	}
}

func filterObject(obj map[string]any, allow map[string]struct{}) map[string]any {
	out := make(map[string]any, len(obj))
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := allow[k]; !ok {
			continue
		}
		out[k] = renderFiltered(obj[k], allow)
	}
	return out
}

func arrayCollapsesToEmptyItems(arr []any) bool {
	allow := map[string]struct{}{}
	for _, item := range arr {
		obj, ok := asObject(item)
		if !ok {
			return false
		}
		filtered := filterObject(obj, allow)
		if len(filtered) != 0 {
			return false
		}
	}
	return true
}

func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, true
	case domain.Document:
		return map[string]any(obj), true
	default:
		return nil, false
	}
}
