package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"careerprep/internal/domain"
	"careerprep/internal/infra/tracer"
)

const (
	// maxResponseBody is the largest JSON response we read.
	maxResponseBody = 10 * 1024 * 1024 // 10 MB
	// maxErrorBody bounds how much of an error response is kept for the message.
	maxErrorBody = 4096
)

// request describes one backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// auth attaches the bearer token.
	auth bool
}

func (c *Client) newRequest(ctx context.Context, r request, accept string) (*http.Request, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)

	if r.auth {
		if c.tokens == nil {
			return nil, domain.ErrNotAuthenticated
		}
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// doJSON performs a JSON call and decodes a 2xx body into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	ctx, span := tracer.StartSpan(ctx, "api.request", trace.WithAttributes(
		tracer.StringAttr("http.method", r.method),
		tracer.StringAttr("http.route", r.path),
	))
	defer span.End()

	err := c.exchangeJSON(ctx, r, out)
	if err != nil {
		tracer.RecordError(span, err)
		c.logger.Debug("api call failed", "method", r.method, "path", r.path, "error", err)
		return err
	}
	tracer.SetOK(span)
	return nil
}

func (c *Client) exchangeJSON(ctx context.Context, r request, out any) error {
	req, err := c.newRequest(ctx, r, "application/json")
	if err != nil {
		return err
	}

	resp, err := c.roundTrip(c.http, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapHTTPError(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// doStream opens an SSE endpoint and returns the live body. The caller owns it.
func (c *Client) doStream(ctx context.Context, r request) (io.ReadCloser, error) {
	ctx, span := tracer.StartSpan(ctx, "api.stream.open", trace.WithAttributes(
		tracer.StringAttr("http.method", r.method),
		tracer.StringAttr("http.route", r.path),
	))
	defer span.End()

	req, err := c.newRequest(ctx, r, "text/event-stream")
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.roundTrip(c.stream, req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := mapHTTPError(resp.StatusCode, body)
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return resp.Body, nil
}

// mapHTTPError maps an HTTP status code and response body to a domain error.
// A JSON body's "message" or "detail" field becomes the error detail.
func mapHTTPError(statusCode int, body []byte) error {
	msg := string(bytes.TrimSpace(body))
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "message"); m.Type == gjson.String {
			msg = m.Str
		} else if d := gjson.GetBytes(body, "detail"); d.Type == gjson.String {
			msg = d.Str
		}
	}
	detail := fmt.Sprintf("API error %d: %s", statusCode, msg)

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, detail)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimit, detail)
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrServer, detail)
	default:
		return fmt.Errorf("%s", detail)
	}
}
