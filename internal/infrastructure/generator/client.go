// Package generator provides the HTTP client for the remote recipe
// generation backend.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/ports/outbound"
	"github.com/chefgpt/server/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	defaultGeneratePath = "/generate-recipe"
	defaultTimeout      = 60 * time.Second
	maxResponseBytes    = 4 << 20

	// FallbackErrorMessage is used when the backend error has no usable detail.
	FallbackErrorMessage = "Failed to generate recipe"
)

// Config holds generator client settings
type Config struct {
	BaseURL      string
	GeneratePath string
	Timeout      time.Duration
}

// Client implements outbound.RecipeGenerator over HTTP
type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

var _ outbound.RecipeGenerator = (*Client)(nil)

// NewClient creates a new generator client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.GeneratePath == "" {
		cfg.GeneratePath = defaultGeneratePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.GeneratePath, "/")

	logger.Info("Recipe generator client initialized",
		zap.String("endpoint", endpoint),
		zap.Duration("timeout", cfg.Timeout))

	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("generator-client"),
	}
}

// errorBody is the backend's error envelope. detail may be a string or a
// validation error list; only strings are shown to users.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Generate sends one generation request. It never retries.
func (c *Client) Generate(ctx context.Context, accessToken string, genReq *recipe.GenerationRequest) (*recipe.GeneratedRecipe, error) {
	jsonBody, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := errorMessage(body)
		c.logger.Warn("Generation backend returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
			zap.Duration("duration", time.Since(start)))
		return nil, errors.NewExternalServiceError("generator", message, resp.StatusCode)
	}

	var generated recipe.GeneratedRecipe
	if err := json.Unmarshal(body, &generated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.logger.Debug("Generation backend call successful",
		zap.String("title", generated.Title),
		zap.Duration("duration", time.Since(start)))

	return &generated, nil
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return FallbackErrorMessage
	}

	var detail string
	if err := json.Unmarshal(eb.Detail, &detail); err != nil || strings.TrimSpace(detail) == "" {
		return FallbackErrorMessage
	}
	return detail
}
