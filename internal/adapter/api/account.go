package api

import (
	"context"
	"net/http"

	"careerprep/internal/domain"
)

// Profile fetches the "my page" profile.
func (c *Client) Profile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/oauth/me/profile", auth: true}, &p); err != nil {
		return nil, domain.WrapOp("api.Profile", err)
	}
	return &p, nil
}

// UpdateProfile replaces the profile bio. The backend names the field "profile".
func (c *Client) UpdateProfile(ctx context.Context, bio string) error {
	err := c.doJSON(ctx, request{
		method: http.MethodPut,
		path:   "/oauth/me/profile",
		body:   map[string]string{"profile": bio},
		auth:   true,
	}, nil)
	return domain.WrapOp("api.UpdateProfile", err)
}
