// Package mercadopago implements adapter.Transport over the Mercado Pago REST API.
package mercadopago

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yourorg/mpqr-bridge/internal/adapter"
	"github.com/yourorg/mpqr-bridge/internal/circuitbreaker"
	"github.com/yourorg/mpqr-bridge/internal/config"
	"github.com/yourorg/mpqr-bridge/internal/metrics"
)

const (
	// ProviderName keys the circuit breaker and tags spans.
	ProviderName = "mercadopago"

	tracerName = "github.com/yourorg/mpqr-bridge/internal/adapter/mercadopago"
)

// ErrMissingToken is returned before any network I/O when no bearer token is configured.
var ErrMissingToken = errors.New("mercadopago: missing access token")

// Options configures a Client.
type Options struct {
	BaseURL        string
	AccessToken    string
	TokenKey       string // property name of the token, used in diagnostics
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
	LogHTTP        bool
	LogHTTPMax     int
	Logger         *zap.Logger
	Breaker        *circuitbreaker.CircuitBreaker
	HTTPClient     *http.Client // overrides the timeout-derived client when set
}

// OptionsFromConfig maps the mp.* properties onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:        cfg.BaseURL(),
		AccessToken:    cfg.AccessToken(),
		TokenKey:       cfg.AccessTokenKey(),
		ConnectTimeout: cfg.ConnectTimeout(),
		SocketTimeout:  cfg.SocketTimeout(),
		LogHTTP:        cfg.LogHTTP(),
		LogHTTPMax:     cfg.LogHTTPMax(),
	}
}

// Client implements adapter.Transport for Mercado Pago.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	tokenKey   string
	logHTTP    bool
	logMax     int
	logger     *zap.Logger
	breaker    *circuitbreaker.CircuitBreaker
}

var _ adapter.Transport = (*Client)(nil)

// NewClient creates a Client. Zero values fall back to the configuration defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultBaseURL
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = config.DefaultConnectTimeout * time.Millisecond
	}
	if opts.SocketTimeout <= 0 {
		opts.SocketTimeout = config.DefaultSocketTimeout * time.Millisecond
	}
	if opts.LogHTTPMax <= 0 {
		opts.LogHTTPMax = config.DefaultLogHTTPMax
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	client := opts.HTTPClient
	if client == nil {
		dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
		client = &http.Client{
			Timeout: opts.ConnectTimeout + opts.SocketTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   opts.ConnectTimeout,
				ResponseHeaderTimeout: opts.SocketTimeout,
			},
		}
	}
	return &Client{
		httpClient: client,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      strings.TrimSpace(opts.AccessToken),
		tokenKey:   opts.TokenKey,
		logHTTP:    opts.LogHTTP,
		logMax:     opts.LogHTTPMax,
		logger:     opts.Logger,
		breaker:    opts.Breaker,
	}
}

// GetName returns the provider name.
func (c *Client) GetName() string {
	return ProviderName
}

// Get implements adapter.Transport.
func (c *Client) Get(ctx context.Context, endpoint string) (adapter.Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, "")
}

// PostJSON implements adapter.Transport.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body []byte, idempotencyKey string) (adapter.Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, idempotencyKey)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, idempotencyKey string) (adapter.Response, error) {
	if c.token == "" {
		if c.tokenKey != "" {
			return adapter.Response{}, fmt.Errorf("%w (%s)", ErrMissingToken, c.tokenKey)
		}
		return adapter.Response{}, ErrMissingToken
	}
	if c.breaker != nil && !c.breaker.AllowRequest(ProviderName) {
		return adapter.Response{}, circuitbreaker.ErrOpen
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "mercadopago."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("mp.endpoint", endpoint),
		),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return adapter.Response{}, fmt.Errorf("mercadopago: failed to create http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		req.Header.Set(adapter.IdempotencyHeader, key)
	}

	if c.logHTTP {
		c.logger.Info("mp http request",
			zap.String("method", method),
			zap.String("url", req.URL.String()),
			zap.String("body", c.preview(body)),
		)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		latency := time.Since(start)
		metrics.RecordProviderCall(method, 0, latency)
		c.recordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return adapter.Response{LatencyMs: latency.Milliseconds()}, fmt.Errorf("mercadopago: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if err != nil {
		metrics.RecordProviderCall(method, 0, latency)
		c.recordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return adapter.Response{StatusCode: resp.StatusCode, LatencyMs: latency.Milliseconds()},
			fmt.Errorf("mercadopago: failed to read response body: %w", err)
	}

	metrics.RecordProviderCall(method, resp.StatusCode, latency)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
		c.recordFailure()
	} else {
		c.recordSuccess()
	}

	if c.logHTTP {
		c.logger.Info("mp http response",
			zap.Int("status", resp.StatusCode),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("body", c.preview(data)),
		)
	}

	return adapter.Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		LatencyMs:  latency.Milliseconds(),
	}, nil
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure(ProviderName)
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess(ProviderName)
	}
}

// preview truncates a payload for logging.
func (c *Client) preview(b []byte) string {
	if len(b) <= c.logMax {
		return string(b)
	}
	return string(b[:c.logMax]) + "..."
}
