package inbound

import (
	"context"

	"github.com/chefgpt/server/internal/domain/user"
)

// AuthService resolves access tokens to users and drives the browser
// sign-in and sign-out flow.
type AuthService interface {
	// CurrentUser returns the user behind an access token or an
	// unauthorized error.
	CurrentUser(ctx context.Context, accessToken string) (*user.User, error)

	// SignInURL returns the identity provider URL the browser is sent to.
	SignInURL(provider string) (string, error)

	// CompleteSignIn validates the tokens handed back by the provider.
	CompleteSignIn(ctx context.Context, accessToken, refreshToken string) (*user.Session, error)

	// SignOut ends the remote session when there is one. Failures are
	// logged, never returned: local state is always cleared.
	SignOut(ctx context.Context, accessToken string)
}
