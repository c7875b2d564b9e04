// Package apiclient talks JSON to the storefront REST services. Responses
// are wrapped in the services' {success, statusCode, message, data}
// envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/looprex/checkout/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxBodyBytes = 4 << 20

// Envelope is the response wrapper used by every storefront service.
type Envelope[T any] struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

// StatusError is returned for non-2xx responses and for envelopes that
// report success=false.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the remote service.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsClientError reports whether err is a 4xx from the remote service.
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreaker overrides the breaker settings. The IsSuccessful classifier is
// always set by the client.
func WithBreaker(cfg circuitbreaker.Config, log *zap.Logger) Option {
	return func(c *Client) {
		cfg.IsSuccessful = isSuccessful
		c.breaker = circuitbreaker.New[[]byte](cfg, log)
	}
}

func New(name, baseURL string, timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	cfg := circuitbreaker.DefaultConfig(name)
	cfg.IsSuccessful = isSuccessful

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[[]byte](cfg, log),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends body as JSON and decodes the envelope's data into out. out may be
// nil when the caller does not need the payload.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
	}

	var status int
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		var raw []byte
		var err error
		raw, status, err = c.roundTrip(ctx, method, path, payload)
		return raw, err
	})
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	// a rejected request is a failure whatever HTTP status carried it
	if !env.Success {
		code := env.StatusCode
		if code == 0 {
			code = status
		}
		return &StatusError{Method: method, Path: path, StatusCode: code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}
	return raw, resp.StatusCode, nil
}

func errorMessage(raw []byte) string {
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// isSuccessful keeps 4xx answers from tripping the breaker: the remote
// service is healthy, the request was not.
func isSuccessful(err error) bool {
	return err == nil || IsClientError(err)
}
