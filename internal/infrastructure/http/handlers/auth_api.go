package handlers

import (
	"net/http"
	"time"

	"github.com/chefgpt/server/internal/application/auth"
	"github.com/chefgpt/server/internal/domain/user"
	"github.com/chefgpt/server/internal/ports/inbound"
	"go.uber.org/zap"
)

// Browser destinations after the auth flow
const (
	RedirectAfterSignIn  = "/recipes"
	RedirectSignInFailed = "/login"
	RedirectAfterSignOut = "/"
)

// CookieConfig controls the session cookie
type CookieConfig struct {
	Names  []string
	Secure bool
	MaxAge time.Duration
}

// AuthAPIHandlers serves the session endpoint and the sign-in/sign-out flow
type AuthAPIHandlers struct {
	responder
	authService inbound.AuthService
	cookies     CookieConfig
}

// NewAuthAPIHandlers creates auth handlers
func NewAuthAPIHandlers(authService inbound.AuthService, cookies CookieConfig, logger *zap.Logger) *AuthAPIHandlers {
	if len(cookies.Names) == 0 {
		cookies.Names = auth.DefaultCookieNames
	}
	return &AuthAPIHandlers{
		responder:   responder{logger: logger.Named("auth-api")},
		authService: authService,
		cookies:     cookies,
	}
}

// SessionResponse describes the caller's session
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          *user.User `json:"user"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Session handles GET /api/auth/session. Anonymous callers get
// authenticated=false rather than an error so pages can decide where to go.
func (h *AuthAPIHandlers) Session(w http.ResponseWriter, r *http.Request) {
	token := auth.ResolveToken(r, h.cookies.Names)

	u, err := h.authService.CurrentUser(r.Context(), token)
	if err != nil {
		h.writeJSON(w, http.StatusOK, SessionResponse{})
		return
	}

	resp := SessionResponse{Authenticated: true, User: u}
	if exp, err := auth.TokenExpiry(token); err == nil && !exp.IsZero() {
		resp.ExpiresAt = &exp
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// SignIn handles GET /auth/signin?provider=google
func (h *AuthAPIHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	target, err := h.authService.SignInURL(r.URL.Query().Get("provider"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles GET /auth/callback. An existing valid session goes
// straight to the recipes page; otherwise tokens in the query string are
// validated and stored in the session cookie.
func (h *AuthAPIHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	if token := auth.ResolveToken(r, h.cookies.Names); token != "" {
		if _, err := h.authService.CurrentUser(r.Context(), token); err == nil {
			http.Redirect(w, r, RedirectAfterSignIn, http.StatusFound)
			return
		}
	}

	query := r.URL.Query()
	accessToken := query.Get("access_token")
	if accessToken == "" {
		h.logger.Info("Sign-in callback without session", zap.String("error", query.Get("error_description")))
		http.Redirect(w, r, RedirectSignInFailed, http.StatusFound)
		return
	}

	session, err := h.authService.CompleteSignIn(r.Context(), accessToken, query.Get("refresh_token"))
	if err != nil {
		h.logger.Info("Sign-in callback rejected", zap.Error(err))
		http.Redirect(w, r, RedirectSignInFailed, http.StatusFound)
		return
	}

	http.SetCookie(w, h.sessionCookie(session))
	http.Redirect(w, r, RedirectAfterSignIn, http.StatusFound)
}

// SignOut handles POST /auth/signout. Local state is always cleared and the
// browser always lands on "/", whatever happened remotely.
func (h *AuthAPIHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	h.authService.SignOut(r.Context(), auth.ResolveToken(r, h.cookies.Names))

	for _, name := range h.cookies.Names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, RedirectAfterSignOut, http.StatusSeeOther)
}

func (h *AuthAPIHandlers) sessionCookie(session *user.Session) *http.Cookie {
	maxAge := h.cookies.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	return &http.Cookie{
		Name:     h.cookies.Names[0],
		Value:    auth.EncodeCookieValue(session),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
