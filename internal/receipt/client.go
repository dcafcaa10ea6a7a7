// Package receipt scores purchase receipts by calling the external OCR
// verification service. The remote call is guarded by the circuit breaker,
// retried with backoff, and capped in concurrency by the admission gate; any
// failure degrades to a zero-score result so the rest of a verification can
// still stand on GPS and QR.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"popcheck/internal/verification/models"
)

const verifyPath = "/receipt/verify"

// Client calls the OCR collaborator over HTTP with bearer authentication.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests, custom
// transports). Timeouts are the breaker's job, so the default client has none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates an OCR service client.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type verifyRequest struct {
	ImageBase64 string `json:"imageBase64"`
	BrandName   string `json:"brandName"`
	CheckInDate string `json:"checkInDate"` // ISO-8601
	PopupID     string `json:"popupId"`
}

type verifyResponse struct {
	Verified      bool   `json:"verified"`
	Score         int    `json:"score"`
	BrandMatched  bool   `json:"brandMatched"`
	DateValid     bool   `json:"dateValid"`
	ExtractedText string `json:"extractedText,omitempty"`
}

// Verify submits the receipt image for OCR verification. Non-2xx responses
// are errors; the scorer decides how failures degrade.
func (c *Client) Verify(ctx context.Context, imageBase64, brandName, popupID string, checkInDate time.Time) (*models.ReceiptResult, error) {
	payload, err := json.Marshal(verifyRequest{
		ImageBase64: imageBase64,
		BrandName:   brandName,
		CheckInDate: checkInDate.UTC().Format(time.RFC3339),
		PopupID:     popupID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal receipt verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build receipt verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("receipt verify call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("receipt verify: unexpected status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode receipt verify response: %w", err)
	}

	return &models.ReceiptResult{
		Verified:      body.Verified,
		Score:         body.Score,
		BrandMatched:  body.BrandMatched,
		DateValid:     body.DateValid,
		ExtractedText: body.ExtractedText,
	}, nil
}
