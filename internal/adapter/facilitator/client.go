// Package facilitator holds the HTTP client for the external gasless
// settlement service.
package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentstore-payments/internal/core/ports"
)

const maxErrorBody = 512

// HTTPClient implements ports.FacilitatorClient over the facilitator's
// /verify and /settle endpoints.
type HTTPClient struct {
	url        string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTPClient against the given base URL.
func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify asks the facilitator to check the authorization's signature and
// payment terms without submitting anything on-chain.
func (c *HTTPClient) Verify(ctx context.Context, req ports.SettlementRequest) (*ports.FacilitatorVerdict, error) {
	var verdict ports.FacilitatorVerdict
	if err := c.post(ctx, "/verify", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Settle submits the authorization for on-chain settlement via the
// facilitator's relay and returns the resulting payment proof.
func (c *HTTPClient) Settle(ctx context.Context, req ports.SettlementRequest) (*ports.SettlementProof, error) {
	var proof ports.SettlementProof
	if err := c.post(ctx, "/settle", req, &proof); err != nil {
		return nil, err
	}
	if proof.TxHash == "" {
		return nil, fmt.Errorf("facilitator settle response missing tx hash")
	}
	return &proof, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding facilitator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building facilitator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling facilitator %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("facilitator %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding facilitator %s response: %w", path, err)
	}
	return nil
}
