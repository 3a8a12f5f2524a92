// Package harvest pulls content candidates from external providers.
//
// Each provider has one Harvester. A harvester maps successful provider
// responses into ContentRecord candidates and treats everything else
// (transport errors, timeouts, non-2xx statuses, unparseable bodies) as zero
// results for that single query. Failures never propagate past the harvester.
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"funfeed/internal/model"
)

const maxBodyBytes = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Params carries per-run harvest tuning and provider-specific selectors.
type Params struct {
	PerPage   int
	Pages     int
	Days      int
	Channel   string
	Playlist  string
	Subreddit string
}

// Harvester queries one external provider for one content type.
type Harvester interface {
	Type() model.ContentType
	Provider() string
	// Harvest runs every query against the provider and returns the mapped
	// candidates. Per-query failures contribute nothing; Harvest itself
	// never fails.
	Harvest(ctx context.Context, queries []string, p Params) []model.ContentRecord
}

// Fetcher performs bounded-wait HTTP calls shared by all harvesters.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// NewFetcher creates a Fetcher. A zero timeout falls back to 8 seconds.
func NewFetcher(client HTTPClient, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Fetcher{client: client, timeout: timeout}
}

// GetJSON fetches url and decodes the response body into out. The call is
// abandoned when the per-call timeout expires.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	body, err := f.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetRaw fetches url and returns the raw body.
func (f *Fetcher) GetRaw(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, url, "")
}

func (f *Fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "FunFeedBot/1.0")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// logQueryFailure records one recovered per-query provider failure.
func logQueryFailure(log *slog.Logger, provider, query string, err error) {
	log.Warn("provider query failed", "provider", provider, "query", query, "error", err)
}

// keepResolvable drops candidates without a usable primary URL.
func keepResolvable(records []model.ContentRecord) []model.ContentRecord {
	kept := records[:0]
	for _, r := range records {
		if r.URL != "" && r.NaturalKey != "" {
			kept = append(kept, r)
		}
	}
	return kept
}
