package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"careerprep/internal/domain"
)

// CodeExchanger trades an OAuth authorization code for an access token.
type CodeExchanger interface {
	ExchangeKakaoCode(ctx context.Context, code string) (*domain.LoginResult, error)
}

// AuthService owns the signed-in user record. It also serves as the API
// client's token source.
type AuthService struct {
	exchanger   CodeExchanger
	users       domain.UserStore
	dedup       *Deduper
	bus         domain.EventBus
	logger      *slog.Logger
	staticToken string
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithStaticToken makes Token return tok regardless of the stored user.
// Used for generated API tokens.
func WithStaticToken(tok string) AuthOption {
	return func(s *AuthService) { s.staticToken = strings.TrimSpace(tok) }
}

// WithAuthEventBus publishes login and logout events on bus.
func WithAuthEventBus(bus domain.EventBus) AuthOption {
	return func(s *AuthService) { s.bus = bus }
}

// NewAuthService creates an AuthService.
func NewAuthService(exchanger CodeExchanger, users domain.UserStore, logger *slog.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthService{
		exchanger: exchanger,
		users:     users,
		dedup:     NewDeduper(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetExchanger sets the code exchanger. The API client needs the service as
// its token source, so the two are wired in two steps.
func (s *AuthService) SetExchanger(e CodeExchanger) {
	s.exchanger = e
}

// Login exchanges an authorization code and stores the resulting user.
// Concurrent logins with the same code share one exchange, which finishes
// even when the login that started it gives up.
func (s *AuthService) Login(ctx context.Context, code string) (*domain.User, error) {
	if s.exchanger == nil {
		return nil, fmt.Errorf("auth login: no code exchanger configured")
	}
	code = strings.TrimSpace(code)
	v, shared, err := s.dedup.Do(ctx, "kakao:"+code, func(ctx context.Context) (any, error) {
		res, err := s.exchanger.ExchangeKakaoCode(ctx, code)
		if err != nil {
			return nil, err
		}
		user := domain.User{
			ID:       res.UserID,
			Nickname: res.Nickname,
			Token:    res.AccessToken,
		}
		if err := s.users.SaveUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("user logged in", "user_id", user.ID)
		s.publish(ctx, domain.EventUserLoggedIn, user.ID)
		return &user, nil
	})
	if err != nil {
		return nil, domain.WrapOp("auth.Login", err)
	}
	if shared {
		s.logger.Debug("login exchange shared", "user_id", v.(*domain.User).ID)
	}
	u := *v.(*domain.User)
	return &u, nil
}

// Logout removes the stored user. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context) error {
	u, err := s.users.LoadUser(ctx)
	if err != nil && !errors.Is(err, domain.ErrDecryption) {
		return domain.WrapOp("auth.Logout", err)
	}
	if err := s.users.DeleteUser(ctx); err != nil {
		return domain.WrapOp("auth.Logout", err)
	}
	if u != nil {
		s.logger.Info("user logged out", "user_id", u.ID)
		s.publish(ctx, domain.EventUserLoggedOut, u.ID)
	}
	return nil
}

// CurrentUser returns the stored user, or domain.ErrNotAuthenticated.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	u, err := s.users.LoadUser(ctx)
	if err != nil {
		return nil, domain.WrapOp("auth.CurrentUser", err)
	}
	if u == nil || u.Token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return u, nil
}

// IsAuthenticated reports whether a token is available.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	_, err := s.Token(ctx)
	return err == nil
}

// Token returns the bearer token for API calls.
func (s *AuthService) Token(ctx context.Context) (string, error) {
	if s.staticToken != "" {
		return s.staticToken, nil
	}
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return u.Token, nil
}

func (s *AuthService) publish(ctx context.Context, t domain.EventType, userID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, domain.NewEvent(t, "", map[string]string{"user_id": userID}))
}
