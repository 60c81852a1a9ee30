// Package api is the HTTP client for the career-prep backend.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"careerprep/internal/infra/config"
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	// http has a whole-request timeout; stream uses the same transport
	// without one so long generations are not cut off mid-body.
	http    *http.Client
	stream  *http.Client
	tokens  TokenSource
	breaker *gobreaker.CircuitBreaker[*http.Response]
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for both JSON and stream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.stream = &http.Client{Transport: hc.Transport}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCircuitBreaker guards requests with a circuit breaker.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(c *Client) {
		if cfg.Enabled {
			c.breaker = newBreaker(cfg, c.logger)
		}
	}
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	hc := NewHTTPClient(config.APIConfig{})
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		stream:  &http.Client{Transport: hc.Transport},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Client from the api config section.
func NewFromConfig(cfg config.APIConfig, tokens TokenSource, logger *slog.Logger) *Client {
	return New(cfg.BaseURL,
		WithLogger(logger),
		WithHTTPClient(NewHTTPClient(cfg)),
		WithTokenSource(tokens),
		WithCircuitBreaker(cfg.CircuitBreaker),
		WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	)
}

// BreakerState reports the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}
