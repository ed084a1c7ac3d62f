// Package linkedin provides channel adapters backed by the LinkedIn
// automation proxy. The proxy owns rate limiting, retries and auth-token
// refresh; adapters here translate one outbound action into one proxy call
// and normalize the result.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeoutSeconds = 30

// Client is a thin HTTP client for the automation proxy.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a proxy client. The API key authenticates the tenant
// account against the proxy.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeoutSeconds * time.Second,
		},
		logger: logger.With("module", "linkedin_client"),
	}
}

type proxyResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// post sends a JSON payload to the proxy and decodes its envelope. A non-2xx
// status or a success=false envelope both surface as errors with the proxy's
// own message, so callers see one failure shape.
func (c *Client) post(ctx context.Context, path string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal proxy payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy response: %w", err)
	}

	var envelope proxyResponse

	err = json.Unmarshal(raw, &envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to decode proxy response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		message := envelope.Error
		if message == "" {
			message = fmt.Sprintf("proxy returned status %d", resp.StatusCode)
		}

		return nil, fmt.Errorf("%s", message)
	}

	return envelope.Data, nil
}

// get fetches a proxy resource and decodes its envelope.
func (c *Client) get(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy response: %w", err)
	}

	var envelope proxyResponse

	err = json.Unmarshal(raw, &envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to decode proxy response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		message := envelope.Error
		if message == "" {
			message = fmt.Sprintf("proxy returned status %d", resp.StatusCode)
		}

		return nil, fmt.Errorf("%s", message)
	}

	return envelope.Data, nil
}
