package auth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chefgpt/server/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

// Default session cookie names, checked in order.
var DefaultCookieNames = []string{"sb-auth-token", "supabase-auth-token"}

// cookiePayload is the JSON stored (URL-encoded) in the session cookie.
type cookiePayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ResolveToken returns the access token carried by the request: the first
// session cookie holding one, then an Authorization bearer header. It
// returns "" when neither is present.
func ResolveToken(r *http.Request, cookieNames []string) string {
	for _, name := range cookieNames {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		if token := ParseCookieValue(c.Value); token != "" {
			return token
		}
	}

	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// ParseCookieValue extracts the access token from a session cookie value.
// A value that is not URL-encoded JSON yields "".
func ParseCookieValue(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return ""
	}

	var payload cookiePayload
	if err := json.Unmarshal([]byte(decoded), &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.AccessToken)
}

// EncodeCookieValue renders a session in the cookie format ParseCookieValue reads.
func EncodeCookieValue(session *user.Session) string {
	raw, _ := json.Marshal(cookiePayload{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
	return url.QueryEscape(string(raw))
}

// TokenExpiry reads the exp claim without verifying the signature. Only the
// identity provider can verify tokens; this lets obviously dead tokens be
// rejected without a round trip. A token without exp returns the zero time.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
