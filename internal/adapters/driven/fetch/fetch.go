// Package fetch provides a rate-limited HTTP fetcher for
// externally-sourced resources such as remote image URIs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 8 << 20 // 8 MiB
	DefaultRateLimit = 4       // requests per second
	DefaultBurst     = 8
)

// Config holds configuration for the fetcher.
type Config struct {
	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration

	// MaxBytes is the response size ceiling (default: 8 MiB).
	MaxBytes int64

	// RateLimit is the sustained request rate per second (default: 4).
	RateLimit float64

	// Burst is the rate limiter burst size (default: 8).
	Burst int
}

// Fetcher downloads resources with a timeout, a byte ceiling and a
// client-side rate limit.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Burst == 0 {
		cfg.Burst = DefaultBurst
	}

	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch downloads the resource at url. Responses larger than the byte
// ceiling fail with domain.ErrResponseTooLarge.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", url, resp.ContentLength, domain.ErrResponseTooLarge)
	}

	// Read one byte past the ceiling to detect oversized chunked bodies.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", url, f.maxBytes, domain.ErrResponseTooLarge)
	}

	return body, nil
}
