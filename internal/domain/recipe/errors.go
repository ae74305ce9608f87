package recipe

import "errors"

var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrInvalidRating  = errors.New("rating must be between 0 and 5")
	ErrNotRecipeOwner = errors.New("only recipe owner can perform this action")
	ErrNoIngredients  = errors.New("ingredients are required")
)
