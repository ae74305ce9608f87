// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/domain/user"
	"github.com/google/uuid"
)

var units = []string{"g", "kg", "ml", "cup", "tbsp", "tsp", "piece", ""}

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	faker  *gofakeit.Faker
	recipe recipe.Recipe
}

// NewRecipeBuilder creates a new recipe builder with default values
func (rf *RecipeFactory) NewRecipeBuilder() *RecipeBuilder {
	now := time.Now().UTC()
	return &RecipeBuilder{
		faker: rf.faker,
		recipe: recipe.Recipe{
			ID:           uuid.New(),
			UserID:       uuid.NewString(),
			Title:        rf.faker.Dinner(),
			Description:  rf.faker.Sentence(12),
			Ingredients:  rf.Ingredients(3),
			Instructions: []string{rf.faker.Sentence(6), rf.faker.Sentence(8)},
			CookingTime:  recipe.CookingTime{PrepTime: 10, CookTime: 20, TotalTime: 30},
			Difficulty:   recipe.DefaultDifficulty,
			Servings:     recipe.DefaultServings,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// WithUser sets the recipe owner
func (rb *RecipeBuilder) WithUser(userID string) *RecipeBuilder {
	rb.recipe.UserID = userID
	return rb
}

// WithTitle sets the recipe title
func (rb *RecipeBuilder) WithTitle(title string) *RecipeBuilder {
	rb.recipe.Title = title
	return rb
}

// WithRating sets the recipe rating
func (rb *RecipeBuilder) WithRating(rating float64) *RecipeBuilder {
	rb.recipe.Rating = rating
	return rb
}

// CreatedAt sets both timestamps
func (rb *RecipeBuilder) CreatedAt(t time.Time) *RecipeBuilder {
	rb.recipe.CreatedAt = t
	rb.recipe.UpdatedAt = t
	return rb
}

// Build returns a copy of the built recipe
func (rb *RecipeBuilder) Build() *recipe.Recipe {
	r := rb.recipe
	return &r
}

// CreateRecipe creates a random recipe owned by userID
func (rf *RecipeFactory) CreateRecipe(userID string) *recipe.Recipe {
	return rf.NewRecipeBuilder().WithUser(userID).Build()
}

// Ingredients creates n random ingredients
func (rf *RecipeFactory) Ingredients(n int) []recipe.Ingredient {
	ingredients := make([]recipe.Ingredient, 0, n)
	for i := 0; i < n; i++ {
		ingredients = append(ingredients, recipe.Ingredient{
			Name:   rf.faker.Vegetable(),
			Amount: recipe.Amount(rf.faker.DigitN(2)),
			Unit:   units[rf.faker.Number(0, len(units)-1)],
		})
	}
	return ingredients
}

// CreateGeneratedRecipe creates a backend answer
func (rf *RecipeFactory) CreateGeneratedRecipe() *recipe.GeneratedRecipe {
	return &recipe.GeneratedRecipe{
		Title:        rf.faker.Dinner(),
		Description:  rf.faker.Sentence(10),
		Ingredients:  rf.Ingredients(4),
		Instructions: []string{rf.faker.Sentence(5), rf.faker.Sentence(7), rf.faker.Sentence(4)},
		CookingTime:  recipe.CookingTime{PrepTime: 15, CookTime: 25, TotalTime: 40},
		Difficulty:   "easy",
		Servings:     2,
	}
}

// UserFactory provides methods to create test users
type UserFactory struct {
	faker *gofakeit.Faker
}

// NewUserFactory creates a new user factory
func NewUserFactory(seed int64) *UserFactory {
	return &UserFactory{faker: gofakeit.New(seed)}
}

// CreateUser creates a random user
func (uf *UserFactory) CreateUser() *user.User {
	return user.NewUser(uuid.NewString(), uf.faker.Email(), map[string]interface{}{
		"full_name": uf.faker.Name(),
	})
}
