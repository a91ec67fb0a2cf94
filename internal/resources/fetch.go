// Package resources talks to the outside services a render depends on: the
// speech synthesizer, the background image source and the music source.
package resources

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; script-to-video/1.0)"
	maxDownloadBytes = 64 << 20
)

// Fetcher performs rate-limited GET requests shared by all resolvers.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewFetcher creates a fetcher allowing rps requests per second with the given
// burst. A non-positive rps disables limiting.
func NewFetcher(rps float64, burst int) *Fetcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		client:    &http.Client{},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: defaultUserAgent,
	}
}

// Fetch downloads url, failing on transport errors and non-200 responses.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return data, nil
}

// TryFetch is Fetch for optional resources: failures are logged and reported
// as ok == false.
func (f *Fetcher) TryFetch(ctx context.Context, what, url string, timeout time.Duration) ([]byte, bool) {
	data, err := f.Fetch(ctx, url, timeout)
	if err != nil {
		log.Printf("WARNING: %s unavailable (%s): %v", what, url, err)
		return nil, false
	}
	return data, true
}
