// Package httpx is the small JSON-over-HTTP client shared by the REST
// toolkits.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout applies to clients created without an http.Client.
const DefaultTimeout = 20 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Client issues JSON requests against one base URL.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
	headers    http.Header
}

// New creates a Client. A nil httpClient uses one with DefaultTimeout.
func New(service, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		headers:    http.Header{},
	}
}

// WithHeader returns a copy of c that sends key: value on every request.
func (c *Client) WithHeader(key, value string) *Client {
	nc := *c
	nc.headers = c.headers.Clone()
	nc.headers.Set(key, value)

	return &nc
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get decodes the response of GET endpoint?query into out.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return c.Do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post sends payload as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, endpoint string, payload, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, payload, out)
}

// Do performs a request. A nil payload sends no body; a nil out discards
// the response body.
func (c *Client) Do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return &APIError{Service: c.service, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// errorMessage prefers a message/error field of a JSON body over the raw text.
func errorMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
		Detail  string `json:"detail"`
	}

	if json.Unmarshal(data, &payload) == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Detail != "":
			return payload.Detail
		}

		switch v := payload.Error.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}

	if msg := strings.TrimSpace(string(data)); msg != "" {
		return msg
	}

	return "empty response"
}
