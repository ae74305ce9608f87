// Package recipe contains the recipe domain: the stored recipe row, the
// bookmark join and the shapes exchanged with the generation backend.
package recipe

import (
	"time"

	"github.com/google/uuid"
)

// Recipe is a stored recipe row. Its JSON form is the row format returned to
// clients.
type Recipe struct {
	ID           uuid.UUID    `json:"id"`
	UserID       string       `json:"user_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	CookingTime  CookingTime  `json:"cooking_time"`
	Difficulty   string       `json:"difficulty"`
	Servings     int          `json:"servings"`
	Rating       float64      `json:"rating"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewRecipe builds an unsaved recipe owned by userID. Missing optional parts
// get the same defaults a generated recipe gets, and the rating starts at 0.
func NewRecipe(userID, title, description string, ingredients []Ingredient, instructions []string, cookingTime CookingTime, difficulty string, servings int) *Recipe {
	r := &Recipe{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		Description:  description,
		Ingredients:  ingredients,
		Instructions: instructions,
		CookingTime:  cookingTime,
		Difficulty:   difficulty,
		Servings:     servings,
	}
	r.applyDefaults()
	return r
}

func (r *Recipe) applyDefaults() {
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	if r.Difficulty == "" {
		r.Difficulty = DefaultDifficulty
	}
	if r.Servings == 0 {
		r.Servings = DefaultServings
	}
	r.Rating = 0
}

// IsOwnedBy reports whether userID owns the recipe.
func (r *Recipe) IsOwnedBy(userID string) bool {
	return r.UserID == userID
}

// Rate sets the recipe rating.
func (r *Recipe) Rate(rating float64) error {
	if err := ValidateRating(rating); err != nil {
		return err
	}
	r.Rating = rating
	return nil
}

// ValidateRating checks the 0..5 rating range.
func ValidateRating(rating float64) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// SavedRecipe is a user's bookmark on a recipe.
type SavedRecipe struct {
	UserID   string    `json:"user_id"`
	RecipeID uuid.UUID `json:"recipe_id"`
	SavedAt  time.Time `json:"saved_at"`
}

const (
	MinRating = 0
	MaxRating = 5

	DefaultDifficulty  = "medium"
	DefaultServings    = 4
	DefaultCookingTime = 30
)
