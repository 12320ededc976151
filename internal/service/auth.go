package service

import (
	"context"
	"strings"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"
	"github.com/boddenberg/orders-dashboard-go/internal/port"

	"go.uber.org/zap"
)

// AuthService runs the login and logout flows on top of the session store.
type AuthService struct {
	gateway   port.IngestionGateway
	session   *SessionStore
	dashboard *Dashboard
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAuthService creates the auth service. dashboard may be nil when only
// the session matters.
func NewAuthService(
	gateway port.IngestionGateway,
	session *SessionStore,
	dashboard *Dashboard,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		gateway:   gateway,
		session:   session,
		dashboard: dashboard,
		metrics:   metrics,
		logger:    logger,
	}
}

// Login authenticates against Backend 1, stores the token and reloads the
// dashboard under the applied filters. On any failure the session is left as
// it was.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if strings.TrimSpace(username) == "" {
		return nil, &domain.ErrValidation{Field: "username", Message: "required"}
	}
	if password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "required"}
	}

	res, err := s.gateway.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", zap.String("username", username), zap.Error(err))
		s.metrics.IncrExternalError("auth")
		return nil, err
	}

	s.session.Login(res.Token)
	if res.Username == "" {
		res.Username = username
	}
	s.logger.Info("login succeeded", zap.String("username", res.Username))

	// A new token means fresh data, as on first mount. A failed load shows up
	// in the dashboard state, not as a login error.
	if s.dashboard != nil {
		state := s.dashboard.Reload(ctx)
		s.logger.Debug("post-login load finished", zap.String("phase", string(state.Phase)))
	}
	return res, nil
}

// Logout clears the session and everything the dashboard loaded under it.
func (s *AuthService) Logout() {
	s.session.Logout()
	if s.dashboard != nil {
		s.dashboard.Reset()
	}
	s.logger.Info("logged out")
}

// Session exposes the underlying store.
func (s *AuthService) Session() *SessionStore { return s.session }
