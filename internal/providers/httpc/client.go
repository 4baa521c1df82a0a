// Package httpc is the JSON-over-HTTP plumbing shared by the provider
// clients. Both the chat and the embedding backends speak OpenAI-compatible
// APIs, so the request shape is the same: POST a JSON payload, bearer auth,
// decode the JSON response.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

const defaultTimeout = 120 * time.Second

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// New returns a client for an API rooted at baseURL. An empty apiKey skips
// the Authorization header; timeout <= 0 falls back to the default.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// PostJSON marshals payload, POSTs it to path and decodes the response body
// into out (skipped when out is nil). Extra headers override nothing the
// client sets itself except by key. Non-2xx responses surface as errors
// carrying the response body.
func (c *Client) PostJSON(ctx context.Context, path string, payload, out any, headers map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.AppUserAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
