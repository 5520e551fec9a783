package usecase

import (
	"testing"
	"time"

	"agenttrust/internal/domain"
)

func issueCodes(issues []domain.DetectedIssue) []string {
	codes := make([]string, 0, len(issues))
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

func hasCode(issues []domain.DetectedIssue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func TestDetectIssues_EmptyNestedContent(t *testing.T) {
	doc := domain.Document{
		"skills": map[string]any{
			"search": map[string]any{
				"description": "full text search over indexed documents",
				"parameters":  map[string]any{"query": "string", "limit": "number"},
			},
		},
	}
	trust := domain.TrustSection{SignedBlocks: []string{"skills"}}

	issues := DetectIssues(doc, trust, domain.SignatureSection{}, time.Now())
	if !hasCode(issues, domain.IssueEmptyNestedContent) {
		t.Fatalf("missing EMPTY_NESTED_CONTENT, got %v", issueCodes(issues))
	}
	for _, issue := range issues {
		if issue.Code == domain.IssueEmptyNestedContent && issue.Severity != domain.SeverityCritical {
			t.Fatalf("severity = %q, want critical", issue.Severity)
		}
	}
}

func TestDetectIssues_SmallSectionNeverCollapses(t *testing.T) {
	// Under the length floor the ratio is meaningless noise.
	doc := domain.Document{
		"meta": map[string]any{"a": map[string]any{"b": "c"}},
	}
	trust := domain.TrustSection{SignedBlocks: []string{"meta"}}

	issues := DetectIssues(doc, trust, domain.SignatureSection{}, time.Now())
	if hasCode(issues, domain.IssueEmptyNestedContent) {
		t.Fatalf("EMPTY_NESTED_CONTENT fired for a tiny section: %v", issueCodes(issues))
	}
}

func TestDetectIssues_FlatSectionSurvivesAllowlist(t *testing.T) {
	doc := domain.Document{
		"metadata": map[string]any{
			"name":        "research-agent",
			"description": "Finds and summarizes papers for a reading list",
			"version":     "1.2.0",
		},
	}
	trust := domain.TrustSection{SignedBlocks: []string{"metadata"}}

	issues := DetectIssues(doc, trust, domain.SignatureSection{}, time.Now())
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issueCodes(issues))
	}
}

func TestDetectIssues_EmptyArrayItems(t *testing.T) {
	doc := domain.Document{
		"capabilities": []any{
			map[string]any{"name": "search", "description": "finds documents"},
			map[string]any{"name": "summarize", "description": "summarizes documents"},
		},
	}
	trust := domain.TrustSection{SignedBlocks: []string{"capabilities"}}

	issues := DetectIssues(doc, trust, domain.SignatureSection{}, time.Now())
	if !hasCode(issues, domain.IssueEmptyArrayItems) {
		t.Fatalf("missing EMPTY_ARRAY_ITEMS, got %v", issueCodes(issues))
	}
}

func TestDetectIssues_ScalarArrayNeverFlagsItems(t *testing.T) {
	doc := domain.Document{
		"capabilities": []any{"search", "summarize", "translate", "classify", "extract"},
	}
	trust := domain.TrustSection{SignedBlocks: []string{"capabilities"}}

	issues := DetectIssues(doc, trust, domain.SignatureSection{}, time.Now())
	if hasCode(issues, domain.IssueEmptyArrayItems) {
		t.Fatalf("EMPTY_ARRAY_ITEMS fired for scalar items: %v", issueCodes(issues))
	}
}

func TestDetectIssues_EmptyFirstItemDoesNotFlag(t *testing.T) {
	doc := domain.Document{
		"capabilities": []any{
			map[string]any{},
			map[string]any{"name": "x"},
		},
	}
	trust := domain.TrustSection{SignedBlocks: []string{"capabilities"}}

	issues := DetectIssues(doc, trust, domain.SignatureSection{}, time.Now())
	if hasCode(issues, domain.IssueEmptyArrayItems) {
		t.Fatalf("EMPTY_ARRAY_ITEMS fired with empty first item: %v", issueCodes(issues))
	}
}

func TestDetectIssues_MissingSignedBlock(t *testing.T) {
	doc := domain.Document{"metadata": map[string]any{"name": "a"}}
	trust := domain.TrustSection{SignedBlocks: []string{"metadata", "skills"}}

	issues := DetectIssues(doc, trust, domain.SignatureSection{}, time.Now())
	if !hasCode(issues, domain.IssueMissingSignedBlock) {
		t.Fatalf("missing MISSING_SIGNED_BLOCK, got %v", issueCodes(issues))
	}
}

func TestDetectIssues_OldSignature(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		createdAt string
		want      bool
	}{
		{"two_years_old", "2024-06-01T00:00:00Z", true},
		{"eleven_months_old", "2025-07-01T00:00:00Z", false},
		{"fresh", "2026-05-31T00:00:00Z", false},
		{"unparseable", "yesterday", false},
		{"absent", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := domain.SignatureSection{CreatedAt: tc.createdAt}
			issues := DetectIssues(domain.Document{}, domain.TrustSection{}, sig, now)
			if got := hasCode(issues, domain.IssueOldSignature); got != tc.want {
				t.Fatalf("OLD_SIGNATURE = %v, want %v (issues %v)", got, tc.want, issueCodes(issues))
			}
		})
	}
}
