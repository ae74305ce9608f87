// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/google/uuid"
)

// RecipeService defines the use cases behind the recipe pages and the
// generation proxy route.
type RecipeService interface {
	// Generation proxy
	GenerateRecipe(ctx context.Context, cmd GenerateRecipeCommand) (*recipe.Recipe, error)

	// Recipe rows
	CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*recipe.Recipe, error)
	GetRecipe(ctx context.Context, recipeID uuid.UUID) (*recipe.Recipe, error)
	ListRecipes(ctx context.Context, userID string) ([]*recipe.Recipe, error)
	RateRecipe(ctx context.Context, cmd RateRecipeCommand) (*recipe.Recipe, error)
	DeleteRecipe(ctx context.Context, recipeID uuid.UUID, userID string) error

	// Bookmarks
	SaveRecipe(ctx context.Context, recipeID uuid.UUID, userID string) error
	UnsaveRecipe(ctx context.Context, recipeID uuid.UUID, userID string) error
	IsRecipeSaved(ctx context.Context, recipeID uuid.UUID, userID string) (bool, error)
	ToggleSavedRecipe(ctx context.Context, recipeID uuid.UUID, userID string) (bool, error)
	ListSavedRecipes(ctx context.Context, userID string) ([]*recipe.Recipe, error)
}

// GenerateRecipeCommand carries a generation request for an authenticated
// user. AccessToken is forwarded to the backend.
type GenerateRecipeCommand struct {
	UserID             string
	AccessToken        string
	Ingredients        []string
	DietaryPreferences []string
	CookingTime        int
	Difficulty         string
	Servings           int
}

// CreateRecipeCommand stores a recipe the client already holds, typically one
// returned by the generator and saved from the create page.
type CreateRecipeCommand struct {
	UserID       string
	Title        string
	Description  string
	Ingredients  []recipe.Ingredient
	Instructions []string
	CookingTime  recipe.CookingTime
	Difficulty   string
	Servings     int
}

// RateRecipeCommand sets a recipe rating
type RateRecipeCommand struct {
	RecipeID uuid.UUID
	UserID   string
	Rating   float64
}
