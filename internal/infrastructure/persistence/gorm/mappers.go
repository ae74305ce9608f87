package gorm

import (
	"github.com/chefgpt/server/internal/domain/recipe"
)

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []recipe.Ingredient{}
	}
	instructions := r.Instructions
	if instructions == nil {
		instructions = []string{}
	}

	return &RecipeModel{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		Description:  r.Description,
		Ingredients:  NewJSONColumn(ingredients),
		Instructions: NewJSONColumn(instructions),
		CookingTime:  NewJSONColumn(r.CookingTime),
		Difficulty:   r.Difficulty,
		Servings:     r.Servings,
		Rating:       r.Rating,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ModelToRecipe converts a GORM model to a domain recipe
func ModelToRecipe(m *RecipeModel) *recipe.Recipe {
	ingredients := m.Ingredients.Data
	if ingredients == nil {
		ingredients = []recipe.Ingredient{}
	}
	instructions := m.Instructions.Data
	if instructions == nil {
		instructions = []string{}
	}

	return &recipe.Recipe{
		ID:           m.ID,
		UserID:       m.UserID,
		Title:        m.Title,
		Description:  m.Description,
		Ingredients:  ingredients,
		Instructions: instructions,
		CookingTime:  m.CookingTime.Data,
		Difficulty:   m.Difficulty,
		Servings:     m.Servings,
		Rating:       m.Rating,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ModelsToRecipes converts a slice of models
func ModelsToRecipes(models []RecipeModel) []*recipe.Recipe {
	recipes := make([]*recipe.Recipe, 0, len(models))
	for i := range models {
		recipes = append(recipes, ModelToRecipe(&models[i]))
	}
	return recipes
}

// SavedRecipeToModel converts a bookmark to a GORM model
func SavedRecipeToModel(s *recipe.SavedRecipe) *SavedRecipeModel {
	return &SavedRecipeModel{
		UserID:   s.UserID,
		RecipeID: s.RecipeID,
		SavedAt:  s.SavedAt,
	}
}
