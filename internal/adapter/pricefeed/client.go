// Package pricefeed holds the HTTP client for the upstream spot-price feed.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client implements ports.PriceFeed against a CoinGecko-style simple-price
// endpoint, e.g. /api/v3/simple/price?ids=ethereum&vs_currencies=usd.
type Client struct {
	feedURL    string
	httpClient *http.Client
}

// NewClient creates a new price feed Client.
func NewClient(feedURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type feedResponse struct {
	Ethereum struct {
		USD float64 `json:"usd"`
	} `json:"ethereum"`
}

// SpotPrice fetches the current ETH/USD price. A missing or non-positive
// value is an error so callers can fall back.
func (c *Client) SpotPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building price feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling price feed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned %d", resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding price feed response: %w", err)
	}
	if body.Ethereum.USD <= 0 {
		return 0, fmt.Errorf("price feed returned non-positive price %v", body.Ethereum.USD)
	}
	return body.Ethereum.USD, nil
}
