package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"agenttrust/internal/config"
	"agenttrust/internal/crawler"
	"agenttrust/internal/infra/crypto"
	"agenttrust/internal/infra/db"
	"agenttrust/internal/infra/keyfetch"
	"agenttrust/internal/usecase"
)

// runCrawl sweeps every registered agent once, using the same environment
// configuration as the daemon.
func runCrawl(args []string) int {
	fs := flag.NewFlagSet("crawl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := config.FromEnv()
	if cfg.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "crawl requires POSTGRES_DSN")
		return 1
	}

	store, err := db.NewStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init store: %v\n", err)
		return 1
	}

	validator := &usecase.DocumentValidator{
		Verifier: &usecase.DocumentVerifier{
			Crypto: crypto.NewService(),
			Keys:   keyfetch.New(&http.Client{}, cfg.KeyFetchTimeout()),
		},
		Structural: &usecase.StructuralValidator{},
	}

	var notifier usecase.Notifier = crawler.NopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = &crawler.WebhookNotifier{URL: cfg.NotifyWebhookURL}
	}

	cr := &crawler.Crawler{
		Agents:      db.NewAgentRepository(store.DB),
		Reports:     db.NewReportRepository(store.DB),
		Validator:   validator,
		Notifier:    notifier,
		Concurrency: cfg.CrawlConcurrency,
		Timeout:     cfg.CrawlTimeout(),
	}

	summary, err := cr.CrawlAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawl: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode summary: %v\n", err)
		return 1
	}
	if err := writeOutput("", out); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	if summary.Failed > 0 {
		return 2
	}
	return 0
}
