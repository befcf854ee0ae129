// Package analyzer is the REST client for the external document analysis
// service, which extracts structured bond metadata from an uploaded
// certificate. The extraction itself (OCR, language models) is entirely the
// service's concern; this adapter validates the response shape and classifies
// failures, nothing more.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/verifychain/verifychain/internal/domain"
)

// Client is the HTTP client for the analysis service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new analysis client.
//
// baseURL is the service root, e.g. "http://localhost:5000". timeout bounds
// the whole analyze call, upload included; zero means 60 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze submits a document payload for metadata extraction. The returned
// AnalysisResult is best-effort on every field except FaceValue, which the
// pipeline's reserve check gates on: an absent or unparseable face value comes
// back as zero, which the reserve stage treats as insufficient. A response
// that fails shape validation is reported as domain.ErrMalformedResponse;
// transport failures are classified as domain.ErrTimeout or
// domain.ErrUnreachable.
func (c *Client) Analyze(ctx context.Context, doc domain.BondDocument) (domain.AnalysisResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", doc.Filename)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: create form file: %w", err)
	}
	if _, err := part.Write(doc.Payload); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: write payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze_bond", &buf)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AnalysisResult{}, classifyTransport("analyzer", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.AnalysisResult{}, classifyTransport("analyzer", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: HTTP %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var ar analyzeResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: decode response: %w: %v", domain.ErrMalformedResponse, err)
	}
	if !ar.Success {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: service reported failure: %w", domain.ErrMalformedResponse)
	}

	return ar.toDomain(), nil
}

// classifyTransport maps a transport-level error to the adapter failure
// taxonomy.
func classifyTransport(service string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %v", service, domain.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", service, err)
	}
	return fmt.Errorf("%s: %w: %v", service, domain.ErrUnreachable, err)
}

// truncate renders at most n bytes of a response body for error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
