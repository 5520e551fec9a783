package domain

import "time"

// Agent is a directory entry: a named agent plus the URL its document is
// published at.
type Agent struct {
	ID          string
	Name        string
	DocumentURL string
	Tags        []string
	CreatedAt   time.Time
}

// PolicyDecision is the listing decision produced by the optional policy
// gate over a composed report.
type PolicyDecision struct {
	Allow      bool     `json:"allow"`
	DenyCodes  []string `json:"deny_codes,omitempty"`
	BundleID   string   `json:"bundle_id,omitempty"`
	BundleHash string   `json:"bundle_hash,omitempty"`
}

// AgentReport is a stored verification report for one crawl or on-demand
// verification of an agent's document.
type AgentReport struct {
	ID        string
	AgentID   string
	Report    ValidationReport
	Policy    *PolicyDecision
	CreatedAt time.Time
}
