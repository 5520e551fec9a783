package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agenttrust/internal/domain"
	"agenttrust/internal/usecase"
)

// WebhookNotifier POSTs a regression event to a configured URL.
type WebhookNotifier struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

type regressionEvent struct {
	Event      string   `json:"event"`
	AgentID    string   `json:"agent_id"`
	AgentName  string   `json:"agent_name"`
	Score      int      `json:"score"`
	Errors     []string `json:"errors,omitempty"`
	OccurredAt string   `json:"occurred_at"`
}

func (n *WebhookNotifier) NotifyRegression(ctx context.Context, agent domain.Agent, report domain.ValidationReport) error {
	if n == nil || n.URL == "" {
		return nil
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(regressionEvent{
		Event:      "verification_regression",
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		Score:      report.Score,
		Errors:     report.Errors,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode regression event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier drops every event; used when no webhook URL is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyRegression(context.Context, domain.Agent, domain.ValidationReport) error {
	return nil
}

var (
	_ usecase.Notifier = (*WebhookNotifier)(nil)
	_ usecase.Notifier = NopNotifier{}
)
