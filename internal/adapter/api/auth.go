package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"careerprep/internal/domain"
)

// ExchangeKakaoCode trades an OAuth authorization code for an access token.
func (c *Client) ExchangeKakaoCode(ctx context.Context, code string) (*domain.LoginResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", domain.ErrInvalidInput)
	}

	var res domain.LoginResult
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/oauth/kakao/callback",
		query:  url.Values{"code": {code}},
	}, &res)
	if err != nil {
		return nil, domain.WrapOp("api.ExchangeKakaoCode", err)
	}
	if res.AccessToken == "" {
		return nil, domain.NewDomainError("api.ExchangeKakaoCode", domain.ErrUnauthorized, "no access token in response")
	}
	return &res, nil
}
