// Package user defines the authenticated user as seen by this service.
// Accounts live with the identity provider; nothing here is persisted.
package user

import (
	"strings"
	"time"
)

// User is the identity resolved from an access token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// NewUser builds a user from provider data. The display name is taken from
// full_name, falling back to name.
func NewUser(id, email string, metadata map[string]interface{}) *User {
	return &User{
		ID:    id,
		Email: email,
		Name:  displayName(metadata),
	}
}

func displayName(metadata map[string]interface{}) string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := metadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Session is a signed-in browser session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the session has a known expiry in the past.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
