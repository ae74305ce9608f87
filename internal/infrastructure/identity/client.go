// Package identity provides the HTTP client for the hosted authentication
// API that owns user accounts.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chefgpt/server/internal/domain/user"
	"github.com/chefgpt/server/internal/ports/outbound"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// ErrRejected is returned when the provider does not accept the token.
var ErrRejected = errors.New("identity provider rejected token")

// Config holds identity client settings
type Config struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
}

// Client implements outbound.IdentityProvider
type Client struct {
	baseURL string
	anonKey string
	client  *http.Client
	logger  *zap.Logger
}

var _ outbound.IdentityProvider = (*Client)(nil)

// NewClient creates a new identity client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		anonKey: cfg.AnonKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("identity-client"),
	}
}

type userResponse struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// GetUser resolves the user owning accessToken
func (c *Client) GetUser(ctx context.Context, accessToken string) (*user.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("User lookup rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	var ur userResponse
	if err := json.Unmarshal(body, &ur); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	if ur.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrRejected)
	}

	return user.NewUser(ur.ID, ur.Email, ur.UserMetadata), nil
}

// SignOut ends the remote session for accessToken
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", accessToken)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sign out failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sign out failed with status %d", resp.StatusCode)
	}
	return nil
}

// AuthorizeURL returns the OAuth entry point for provider
func (c *Client) AuthorizeURL(provider, redirectTo string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

func (c *Client) newRequest(ctx context.Context, method, path, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
