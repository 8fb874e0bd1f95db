// Package backend is the HTTP client for the society REST backend.
// Every request forwards the caller's bearer token, normalises non-2xx
// answers into domain.ErrUpstream and validates decoded payloads.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("backend")

// validator is implemented by decoded payloads that carry a schema check.
type validator interface {
	Validate() error
}

var _ port.Backend = (*Client)(nil)

// Client wraps HTTP calls to the society backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a backend client. A nil breaker gets the default one.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if cb == nil {
		cb = resilience.NewCircuitBreaker("backend", IsClientError)
	}
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 16
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(maxConc),
		cfg:        cfg,
		logger:     logger,
	}
}

// IsClientError reports whether err is a 4xx answer or a schema failure.
// Those say nothing about backend health and never trip the breaker.
func IsClientError(err error) bool {
	var up *domain.ErrUpstream
	if errors.As(err, &up) {
		return up.Status >= 400 && up.Status < 500
	}
	var dec *domain.ErrDecode
	return errors.As(err, &dec)
}

// call runs one request through the bulkhead and breaker. Only GETs are
// retried; a mutation is issued exactly once.
func (c *Client) call(ctx context.Context, service, method, path string, in, out any) error {
	ctx, span := tracer.Start(ctx, "Backend."+service)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("backend.path", path),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: service}
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		if method != http.MethodGet {
			return nil, c.doJSON(ctx, method, path, in, out)
		}
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			err := c.doJSON(ctx, method, path, in, out)
			if IsClientError(err) {
				return resilience.Permanent(err)
			}
			return err
		})
	})
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return c.classify(service, err)
}

func (c *Client) classify(service string, err error) error {
	var up *domain.ErrUpstream
	var dec *domain.ErrDecode
	switch {
	case errors.As(err, &up), errors.As(err, &dec):
		return err
	case resilience.IsOpen(err):
		return &domain.ErrCircuitOpen{Service: "backend/" + service}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: "backend/" + service, Err: err}
}

// doJSON sends in as JSON, decodes the answer into out and validates it.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		c.logger.Error("backend: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := domain.AccessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("backend: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return upstreamError(resp.StatusCode, body)
	}

	c.logger.Debug("backend: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ErrDecode{Schema: path, Reason: err.Error()}
	}
	if v, ok := out.(validator); ok {
		return v.Validate()
	}
	return nil
}

// upstreamError prefers the backend's own message and keeps the decoded
// body as data.
func upstreamError(status int, body []byte) *domain.ErrUpstream {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		data = map[string]any{}
	}
	e := domain.NewErrUpstream(status, data)
	if msg, ok := data["message"].(string); ok && msg != "" {
		e.Message = msg
	}
	return e
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
