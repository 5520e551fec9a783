package keyfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxKeyBodySize = 64 * 1024
)

// Fetcher retrieves public-key PEM text over plain HTTP GET. The transport
// is an injected dependency so tests run against a fake server; there is no
// ambient global client. One attempt per call, no retries.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

func New(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{client: client, timeout: timeout}
}

// Fetch GETs the key URL and returns the body as text. A transport error,
// timeout, or non-2xx status is terminal.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build key request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch public key: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch public key: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeyBodySize))
	if err != nil {
		return "", fmt.Errorf("read public key body: %w", err)
	}
	return string(body), nil
}
