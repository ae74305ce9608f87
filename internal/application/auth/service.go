// Package auth provides the application layer for authentication: token
// resolution, identity checks and the browser sign-in/sign-out flow.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/chefgpt/server/internal/domain/user"
	"github.com/chefgpt/server/internal/ports/inbound"
	"github.com/chefgpt/server/internal/ports/outbound"
	"github.com/chefgpt/server/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// MessageNoToken is returned when the request carries no access token.
	MessageNoToken = "Authentication required - No access token found"
	// MessageInvalidToken is returned when the token does not resolve to a user.
	MessageInvalidToken = "Invalid authentication - User not found"

	defaultRevocationTTL = time.Hour
	defaultProvider      = "google"
)

// Config holds the settings the auth flow needs
type Config struct {
	// PublicURL is the externally visible base URL of this service.
	PublicURL string
	// Providers lists the OAuth providers sign-in may redirect to.
	Providers []string
}

// Service implements inbound.AuthService
type Service struct {
	identity    outbound.IdentityProvider
	revocations outbound.TokenRevocationStore
	metrics     outbound.MetricsRecorder
	config      Config
	logger      *zap.Logger
	now         func() time.Time

	// revocationWarn keeps a Redis outage from logging once per request.
	revocationWarn rate.Sometimes
}

// NewService creates a new auth service
func NewService(
	identity outbound.IdentityProvider,
	revocations outbound.TokenRevocationStore,
	metrics outbound.MetricsRecorder,
	config Config,
	logger *zap.Logger,
) inbound.AuthService {
	if len(config.Providers) == 0 {
		config.Providers = []string{defaultProvider}
	}
	return &Service{
		identity:    identity,
		revocations: revocations,
		metrics:     metrics,
		config:      config,
		logger:      logger.Named("auth-service"),
		now:         time.Now,

		revocationWarn: rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// CurrentUser resolves the user behind an access token
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*user.User, error) {
	if accessToken == "" {
		s.metrics.RecordAuthentication("missing_token")
		return nil, errors.NewUnauthorizedError(MessageNoToken)
	}

	expiresAt, err := TokenExpiry(accessToken)
	if err != nil {
		s.metrics.RecordAuthentication("malformed")
		s.logger.Debug("Rejecting malformed access token", zap.Error(err))
		return nil, errors.NewUnauthorizedError(MessageInvalidToken).WithCause(err)
	}
	if !expiresAt.IsZero() && !s.now().Before(expiresAt) {
		s.metrics.RecordAuthentication("expired")
		return nil, errors.NewUnauthorizedError(MessageInvalidToken)
	}

	revoked, err := s.revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		s.revocationWarn.Do(func() {
			s.logger.Warn("Revocation check failed, continuing", zap.Error(err))
		})
	}
	if revoked {
		s.metrics.RecordAuthentication("revoked")
		return nil, errors.NewUnauthorizedError(MessageInvalidToken)
	}

	u, err := s.identity.GetUser(ctx, accessToken)
	if err != nil || u == nil {
		s.metrics.RecordAuthentication("rejected")
		s.logger.Info("Identity provider rejected token", zap.Error(err))
		return nil, errors.NewUnauthorizedError(MessageInvalidToken).WithCause(err)
	}

	s.metrics.RecordAuthentication("success")
	return u, nil
}

// SignInURL returns the provider authorize URL; the provider sends the
// browser back to /auth/callback.
func (s *Service) SignInURL(provider string) (string, error) {
	if provider == "" {
		provider = defaultProvider
	}
	if !s.providerAllowed(provider) {
		return "", errors.NewBadRequestError("Unsupported sign-in provider")
	}

	redirectTo := strings.TrimRight(s.config.PublicURL, "/") + "/auth/callback"
	return s.identity.AuthorizeURL(provider, redirectTo), nil
}

// CompleteSignIn validates the tokens handed back by the provider and
// returns the session to store in the cookie.
func (s *Service) CompleteSignIn(ctx context.Context, accessToken, refreshToken string) (*user.Session, error) {
	u, err := s.CurrentUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	expiresAt, _ := TokenExpiry(accessToken)
	s.logger.Info("User signed in", zap.String("user_id", u.ID))

	return &user.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         u,
	}, nil
}

// SignOut ends the remote session and revokes the token. Without a token
// there is nothing to end remotely.
func (s *Service) SignOut(ctx context.Context, accessToken string) {
	if accessToken == "" {
		s.logger.Debug("Sign out without session")
		return
	}

	if err := s.identity.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("Remote sign out failed", zap.Error(err))
	}

	if err := s.revocations.Revoke(ctx, accessToken, s.revocationTTL(accessToken)); err != nil {
		s.logger.Warn("Failed to revoke token", zap.Error(err))
	}

	s.logger.Info("User signed out")
}

func (s *Service) revocationTTL(accessToken string) time.Duration {
	expiresAt, err := TokenExpiry(accessToken)
	if err != nil || expiresAt.IsZero() {
		return defaultRevocationTTL
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

func (s *Service) providerAllowed(provider string) bool {
	for _, p := range s.config.Providers {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}
