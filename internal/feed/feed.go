// Package feed fetches item snapshot batches from an external snapshot
// feed over HTTP. The scraping adapter that produces the feed is an
// external collaborator; this client only decodes its JSON output.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

const defaultTimeout = 30 * time.Second

// Client fetches snapshot batches from a feed URL.
type Client struct {
	url    string
	client *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Client) {
		f.client = c
	}
}

// NewClient creates a feed client for the given URL.
func NewClient(url string, opts ...Option) *Client {
	f := &Client{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// feedResponse is the feed wire format.
type feedResponse struct {
	Items []domain.Item `json:"items"`
}

// Fetch retrieves the current snapshot batch. Decoding fails loudly on
// unknown delivery kinds so a changed upstream enum never slips through
// silently.
func (f *Client) Fetch(ctx context.Context) ([]domain.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %d", resp.StatusCode)
	}

	var out feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding feed response: %w", err)
	}
	return out.Items, nil
}
