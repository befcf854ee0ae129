// Package pinata is the REST client for the Pinata IPFS pinning service.
// Verified documents are pinned after a successful pipeline run so the minted
// asset can carry a content-addressed reference alongside its SHA-256 hash.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client is the HTTP client for the Pinata pinning API.
type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a new Pinata client.
//
// baseURL is the API root, e.g. "https://api.pinata.cloud".
func NewClient(baseURL, apiKey, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// pinResponse is the wire format of a successful pin.
type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinFile uploads a file payload and pins it, returning the IPFS CID.
func (c *Client) PinFile(ctx context.Context, filename string, payload []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("pinata: create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("pinata: write payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("pinata: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinFileToIPFS", &buf)
	if err != nil {
		return "", fmt.Errorf("pinata: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata: pin file: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("pinata: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pinata: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var pr pinResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", fmt.Errorf("pinata: decode response: %w", err)
	}
	if pr.IpfsHash == "" {
		return "", fmt.Errorf("pinata: response missing IpfsHash")
	}

	return pr.IpfsHash, nil
}
