package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"careerprep/internal/domain"
)

// Templates lists interview templates, page is 1-based.
//
// Some deployments answer with a bare array, others with a page object; both
// are accepted.
func (c *Client) Templates(ctx context.Context, page, size int) (*domain.TemplatePage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	var raw json.RawMessage
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/interview/templates",
		query:  url.Values{"page": {strconv.Itoa(page)}, "size": {strconv.Itoa(size)}},
		auth:   true,
	}, &raw)
	if err != nil {
		return nil, domain.WrapOp("api.Templates", err)
	}

	out := &domain.TemplatePage{Page: page}
	if len(raw) == 0 {
		return out, nil
	}
	list := gjson.ParseBytes(raw)
	if !list.IsArray() {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("api.Templates: decode page: %w", err)
		}
		if out.Page == 0 {
			out.Page = page
		}
		return out, nil
	}
	if err := json.Unmarshal(raw, &out.Templates); err != nil {
		return nil, fmt.Errorf("api.Templates: decode list: %w", err)
	}
	return out, nil
}

// CreateTemplate starts a new mock interview on theme.
func (c *Client) CreateTemplate(ctx context.Context, theme string) (*domain.CreatedInterview, error) {
	if theme == "" {
		return nil, fmt.Errorf("api.CreateTemplate: %w: theme is required", domain.ErrInvalidInput)
	}
	var res domain.CreatedInterview
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "/interview/templates",
		body:   map[string]string{"theme": theme},
		auth:   true,
	}, &res)
	if err != nil {
		return nil, domain.WrapOp("api.CreateTemplate", err)
	}
	return &res, nil
}

// Messages returns one page of interview history. An empty cursor asks for
// the most recent page.
func (c *Client) Messages(ctx context.Context, templateID, cursor string) (*domain.MessagePage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page domain.MessagePage
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/interview/" + url.PathEscape(templateID) + "/messages",
		query:  q,
		auth:   true,
	}, &page)
	if err != nil {
		return nil, domain.WrapOp("api.Messages", err)
	}
	return &page, nil
}

// StartInterview opens the interviewer's first streamed question.
func (c *Client) StartInterview(ctx context.Context, templateID string) (io.ReadCloser, error) {
	body, err := c.doStream(ctx, request{
		method: http.MethodPost,
		path:   "/interview/" + url.PathEscape(templateID) + "/start",
		auth:   true,
	})
	if err != nil {
		return nil, domain.WrapOp("api.StartInterview", err)
	}
	return body, nil
}

// Answer submits an answer and opens the interviewer's streamed follow-up.
func (c *Client) Answer(ctx context.Context, templateID, answer string) (io.ReadCloser, error) {
	body, err := c.doStream(ctx, request{
		method: http.MethodPost,
		path:   "/interview/" + url.PathEscape(templateID) + "/answer",
		body:   map[string]string{"answer": answer},
		auth:   true,
	})
	if err != nil {
		return nil, domain.WrapOp("api.Answer", err)
	}
	return body, nil
}
