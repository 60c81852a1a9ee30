package api

import (
	"context"
	"net/http"

	"careerprep/internal/domain"
)

// Register creates a username/password account.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "/users/register",
		body:   req,
	}, nil)
	return domain.WrapOp("api.Register", err)
}

// Me returns the signed-in user's account summary.
func (c *Client) Me(ctx context.Context) (*domain.UserInfo, error) {
	var info domain.UserInfo
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/users/me", auth: true}, &info); err != nil {
		return nil, domain.WrapOp("api.Me", err)
	}
	return &info, nil
}

// IssueAPIToken asks the backend for a long-lived API token.
func (c *Client) IssueAPIToken(ctx context.Context) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/users/me/api-token", auth: true}, &res); err != nil {
		return "", domain.WrapOp("api.IssueAPIToken", err)
	}
	return res.Token, nil
}
