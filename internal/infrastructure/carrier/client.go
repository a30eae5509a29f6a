// Package carrier is the HTTP client for the carrier manifest API.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/manifest/backend/internal/domain/manifest"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from the carrier (10MB)
const maxResponseSize = 10 * 1024 * 1024

const (
	createPath   = "api/cmu/create.json"
	editPath     = "api/p/edit"
	packagesPath = "api/v1/packages/json"
)

// Client submits manifests to the carrier and acts on its shipments
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	observe    func(seconds float64)
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// WithLatencyObserver receives the duration of every round trip in seconds
func WithLatencyObserver(fn func(seconds float64)) ClientOption {
	return func(cl *Client) {
		cl.observe = fn
	}
}

// NewClient creates a carrier client
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		config:     cfg,
		baseURL:    cfg.ResolvedBaseURL(),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("carrier")
	return c, nil
}

// BaseURL returns the resolved carrier base url
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit sends a built payload to the create endpoint
func (c *Client) Submit(ctx context.Context, payload *manifest.Payload) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("carrier: encode payload: %w", err)
	}
	return c.create(ctx, body)
}

// SubmitRaw sends a caller-built payload unchanged
func (c *Client) SubmitRaw(ctx context.Context, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("carrier: encode payload: %w", err)
	}
	return c.create(ctx, body)
}

func (c *Client) create(ctx context.Context, data []byte) (map[string]any, error) {
	form := url.Values{}
	form.Set("format", "json")
	form.Set("data", string(data))

	raw, err := c.doRequest(ctx, http.MethodPost, createPath, form)
	if err != nil {
		return nil, err
	}
	return decodeResponse(raw), nil
}

// Edit posts updated shipment fields. Nested values are sent as JSON text.
func (c *Client) Edit(ctx context.Context, details map[string]any) (map[string]any, error) {
	form := url.Values{}
	for k, v := range details {
		field, err := formValue(v)
		if err != nil {
			return nil, fmt.Errorf("carrier: encode field %s: %w", k, err)
		}
		form.Set(k, field)
	}
	raw, err := c.doRequest(ctx, http.MethodPost, editPath, form)
	if err != nil {
		return nil, err
	}
	return decodeResponse(raw), nil
}

// Cancel cancels the shipment holding waybill
func (c *Client) Cancel(ctx context.Context, waybill string) (map[string]any, error) {
	form := url.Values{}
	form.Set("waybill", waybill)
	form.Set("cancellation", "true")
	raw, err := c.doRequest(ctx, http.MethodPost, packagesPath, form)
	if err != nil {
		return nil, err
	}
	return decodeResponse(raw), nil
}

// Track fetches the tracking status of waybill
func (c *Client) Track(ctx context.Context, waybill string) (map[string]any, error) {
	params := url.Values{}
	params.Set("waybill", waybill)
	raw, err := c.doRequest(ctx, http.MethodGet, packagesPath, params)
	if err != nil {
		return nil, err
	}
	return decodeResponse(raw), nil
}

func formValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case map[string]any, []any:
		b, err := json.Marshal(t)
		return string(b), err
	default:
		return fmt.Sprint(t), nil
	}
}

// doRequest sends form to path, as the query of a GET or the body of
// anything else, and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	endpoint := c.baseURL + strings.TrimLeft(path, "/")
	var body io.Reader
	if method == http.MethodGet {
		if len(form) > 0 {
			endpoint += "?" + form.Encode()
		}
	} else {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("carrier: failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Token "+c.config.Token)
	}

	c.logger.Info("[CARRIER] request", zap.String("method", method), zap.String("path", path))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.observe != nil {
		c.observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", manifest.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", manifest.ErrGatewayUnavailable, err)
	}

	c.logger.Info("[CARRIER] response", zap.String("path", path), zap.Int("status", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(respBody, 512)}
	}
	return respBody, nil
}

// StatusError is a non-2xx carrier response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", manifest.ErrGatewayRejected, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrGatewayRejected and ErrGateway
func (e *StatusError) Unwrap() error {
	return manifest.ErrGatewayRejected
}

// decodeResponse parses a JSON object. Anything else is wrapped as
// {"response": <text>}.
func decodeResponse(body []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return map[string]any{"response": string(body)}
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// IsRejected reports whether err is a carrier rejection and returns its status
func IsRejected(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
