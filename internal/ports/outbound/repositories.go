// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/domain/user"
	"github.com/google/uuid"
)

// RecipeRepository defines the interface for recipe persistence.
// FindByID returns recipe.ErrRecipeNotFound for unknown ids.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *recipe.Recipe) error
	FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error)
	FindByUserID(ctx context.Context, userID string) ([]*recipe.Recipe, error)
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SavedRecipeRepository persists bookmarks. Save is idempotent.
type SavedRecipeRepository interface {
	Save(ctx context.Context, saved *recipe.SavedRecipe) error
	Remove(ctx context.Context, userID string, recipeID uuid.UUID) error
	Exists(ctx context.Context, userID string, recipeID uuid.UUID) (bool, error)
	// FindRecipesByUserID returns the bookmarked recipes, most recently saved first.
	FindRecipesByUserID(ctx context.Context, userID string) ([]*recipe.Recipe, error)
}

// IdentityProvider is the hosted authentication service.
type IdentityProvider interface {
	GetUser(ctx context.Context, accessToken string) (*user.User, error)
	SignOut(ctx context.Context, accessToken string) error
	AuthorizeURL(provider, redirectTo string) string
}

// RecipeGenerator is the remote AI recipe generation backend. A non-2xx
// answer comes back as an *errors.AppError carrying the upstream status.
type RecipeGenerator interface {
	Generate(ctx context.Context, accessToken string, req *recipe.GenerationRequest) (*recipe.GeneratedRecipe, error)
}

// TokenRevocationStore remembers signed-out access tokens until they expire.
type TokenRevocationStore interface {
	Revoke(ctx context.Context, accessToken string, ttl time.Duration) error
	IsRevoked(ctx context.Context, accessToken string) (bool, error)
}

// MetricsRecorder receives business metrics from the application layer.
type MetricsRecorder interface {
	RecordGeneration(outcome string, duration time.Duration)
	RecordRecipeOperation(operation, outcome string)
	RecordAuthentication(outcome string)
}
