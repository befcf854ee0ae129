// Package oracle is the REST client for the external market data oracle,
// which provides the live benchmark yield the pipeline cross-checks extracted
// bond metadata against.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/verifychain/verifychain/internal/domain"
)

// Client is the HTTP client for the oracle service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new oracle client. baseURL is the API root; timeout
// bounds each snapshot fetch (zero means 15 seconds).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// rateResponse is the oracle's wire format for a benchmark rate.
type rateResponse struct {
	LiveYield *float64 `json:"live_yield"`
	Timestamp int64    `json:"timestamp"`
}

// Snapshot fetches the current benchmark rate for the given instrument
// symbol. The oracle's own timestamp is carried as-is into the snapshot to
// preserve provenance; a response missing the yield or the timestamp is
// rejected as domain.ErrMalformedResponse.
func (c *Client) Snapshot(ctx context.Context, symbol string) (domain.OracleSnapshot, error) {
	path := fmt.Sprintf("%s/v1/rates/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.OracleSnapshot{}, fmt.Errorf("oracle: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OracleSnapshot{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return domain.OracleSnapshot{}, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.OracleSnapshot{}, fmt.Errorf("oracle: HTTP %d for %s", resp.StatusCode, symbol)
	}

	var rr rateResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return domain.OracleSnapshot{}, fmt.Errorf("oracle: decode response: %w: %v", domain.ErrMalformedResponse, err)
	}
	if rr.LiveYield == nil || rr.Timestamp <= 0 {
		return domain.OracleSnapshot{}, fmt.Errorf("oracle: incomplete rate for %s: %w", symbol, domain.ErrMalformedResponse)
	}

	return domain.OracleSnapshot{
		LiveYield:        *rr.LiveYield,
		TimestampSeconds: rr.Timestamp,
	}, nil
}

// classifyTransport maps a transport-level error to the adapter failure
// taxonomy.
func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("oracle: %w: %v", domain.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("oracle: %w", err)
	}
	return fmt.Errorf("oracle: %w: %v", domain.ErrUnreachable, err)
}
