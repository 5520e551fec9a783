package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"agenttrust/internal/domain"
	"agenttrust/internal/usecase"

	"golang.org/x/sync/errgroup"
)

const maxDocumentBodySize = 1 << 20

// Crawler re-validates every registered agent's document on demand. Each
// agent is fetched and verified independently; one broken agent never stops
// the sweep.
type Crawler struct {
	Agents    usecase.AgentRepository
	Reports   usecase.ReportRepository
	Validator *usecase.DocumentValidator
	Policy    usecase.PolicyGate
	Notifier  usecase.Notifier

	Client      *http.Client
	Concurrency int
	Timeout     time.Duration
}

// Summary is the aggregate outcome of one sweep.
type Summary struct {
	Total       int `json:"total"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Regressions int `json:"regressions"`
}

func (cr *Crawler) client() *http.Client {
	if cr.Client != nil {
		return cr.Client
	}
	return http.DefaultClient
}

// CrawlAll validates every registered agent with a bounded worker pool and
// stores a fresh report for each. Fetch or store failures count as Failed
// but do not abort the sweep.
func (cr *Crawler) CrawlAll(ctx context.Context) (Summary, error) {
	agents, err := cr.Agents.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list agents: %w", err)
	}

	concurrency := cr.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	results := make([]error, len(agents))
	regressions := make([]bool, len(agents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, agent := range agents {
		i, agent := i, agent
		g.Go(func() error {
			regressed, err := cr.crawlOne(gctx, agent)
			results[i] = err
			regressions[i] = regressed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(agents)}
	for i := range agents {
		if results[i] != nil {
			summary.Failed++
			log.Printf("crawl %s (%s): %v", agents[i].Name, agents[i].ID, results[i])
			continue
		}
		summary.Succeeded++
		if regressions[i] {
			summary.Regressions++
		}
	}
	return summary, nil
}

func (cr *Crawler) crawlOne(ctx context.Context, agent domain.Agent) (regressed bool, err error) {
	doc, err := cr.fetchDocument(ctx, agent.DocumentURL)
	if err != nil {
		return false, err
	}

	report := cr.Validator.Validate(ctx, doc, usecase.ValidateOptions{})

	var decision *domain.PolicyDecision
	if cr.Policy != nil {
		d, err := cr.Policy.Evaluate(ctx, report)
		if err != nil {
			log.Printf("policy evaluation for agent %s: %v", agent.ID, err)
		} else {
			decision = &d
		}
	}

	regressed = cr.isRegression(ctx, agent, report)

	if cr.Reports != nil {
		if _, err := cr.Reports.Put(ctx, domain.AgentReport{
			AgentID: agent.ID,
			Report:  report,
			Policy:  decision,
		}); err != nil {
			return false, fmt.Errorf("store report: %w", err)
		}
	}

	if regressed && cr.Notifier != nil {
		if err := cr.Notifier.NotifyRegression(ctx, agent, report); err != nil {
			log.Printf("notify regression for agent %s: %v", agent.ID, err)
		}
	}
	return regressed, nil
}

// isRegression is true when the previous stored report was valid and the
// fresh one is not. It must run before the fresh report is stored.
func (cr *Crawler) isRegression(ctx context.Context, agent domain.Agent, fresh domain.ValidationReport) bool {
	if cr.Reports == nil || fresh.Valid {
		return false
	}
	previous, err := cr.Reports.LatestByAgent(ctx, agent.ID)
	if err != nil || previous == nil {
		return false
	}
	return previous.Report.Valid
}

func (cr *Crawler) fetchDocument(ctx context.Context, url string) (domain.Document, error) {
	timeout := cr.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cr.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBodySize))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", domain.ErrInvalidDocument)
	}
	return doc, nil
}
