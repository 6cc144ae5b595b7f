package storefront

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

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/resilience"
)

const (
	userAgent       = "toko-pricing/1.0"
	maxResponseBody = 4 << 20
	breakerTarget   = "storefront"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// MaxAttempts bounds attempts for idempotent reads. Writes always run once.
	MaxAttempts int
	Breaker     *resilience.Breaker
	Transport   http.RoundTripper
	Logger      zerolog.Logger
}

// Client talks to the storefront REST API for products, categories, discounts and
// cart lines.
type Client struct {
	base   *url.URL
	http   resilience.HTTPClient
	logger zerolog.Logger
}

// New validates the options and builds a client. Outbound requests are traced
// through otelhttp and guarded by the breaker.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("storefront base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid storefront base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("storefront base url must be http or https")
	}
	if base.Host == "" {
		return nil, errors.New("storefront base url must include host")
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 0.5, 30*time.Second)
	}
	breaker.WithTarget(breakerTarget).WithLogger(opts.Logger)
	return &Client{
		base: base,
		http: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(transport)},
			Breaker:     breaker,
			Target:      breakerTarget,
			MaxAttempts: opts.MaxAttempts,
			BaseBackoff: 100 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     opts.Timeout,
		},
		logger: opts.Logger,
	}, nil
}

// request describes one storefront call.
type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(op, method, path string, payload any) (request, error) {
	req := request{op: op, method: method, path: path}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("encode %s payload: %w", op, err)
	}
	req.body = bytes.NewReader(data)
	req.contentType = "application/json"
	return req, nil
}

// do performs the call and returns the response body of a 2xx response. Transport
// failures and non-2xx statuses come back as *Error.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	ctx, span := otel.Tracer("storefront.Client").Start(ctx, "Client."+r.op)
	defer span.End()
	span.SetAttributes(
		attribute.String("storefront.op", r.op),
		attribute.String("http.method", r.method),
	)

	target := c.base.JoinPath(r.path)
	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), r.body)
	if err != nil {
		span.RecordError(err)
		return nil, &Error{Op: r.op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	reqID := middleware.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	if auth := AuthorizationFrom(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	obs.CountStorefrontCall(ctx)
	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn().Err(err).Str("op", r.op).Str("request_id", reqID).Msg("storefront_request_failed")
		return nil, &Error{Op: r.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		span.RecordError(err)
		return nil, &Error{Op: r.op, StatusCode: resp.StatusCode, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug().
		Str("op", r.op).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("storefront_request")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, &Error{Op: r.op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// fetch performs a JSON call and decodes the tolerant envelope into dst.
func (c *Client) fetch(ctx context.Context, r request, dst any, keys ...string) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if err := decodeEnvelope(body, dst, keys...); err != nil {
		return &Error{Op: r.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Ping checks that the storefront answers. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return &Error{Op: "ping", Err: err}
	}
	_ = resp.Body.Close()
	return nil
}
