package gorm

import (
	"context"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedRecipeRepository implements bookmark persistence using GORM
type SavedRecipeRepository struct {
	db *gorm.DB
}

// NewSavedRecipeRepository creates a new saved recipe repository
func NewSavedRecipeRepository(db *gorm.DB) outbound.SavedRecipeRepository {
	return &SavedRecipeRepository{db: db}
}

// Save inserts a bookmark; an existing one is left untouched
func (r *SavedRecipeRepository) Save(ctx context.Context, saved *recipe.SavedRecipe) error {
	model := SavedRecipeToModel(saved)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "recipe_id"}},
			DoNothing: true,
		}).
		Create(model).Error
}

// Remove deletes a bookmark
func (r *SavedRecipeRepository) Remove(ctx context.Context, userID string, recipeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&SavedRecipeModel{}).Error
}

// Exists reports whether a bookmark exists
func (r *SavedRecipeRepository) Exists(ctx context.Context, userID string, recipeID uuid.UUID) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).
		Model(&SavedRecipeModel{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

// FindRecipesByUserID returns bookmarked recipes, most recently saved first
func (r *SavedRecipeRepository) FindRecipesByUserID(ctx context.Context, userID string) ([]*recipe.Recipe, error) {
	var models []RecipeModel

	result := r.db.WithContext(ctx).
		Model(&RecipeModel{}).
		Select("recipes.*").
		Joins("JOIN saved_recipes ON saved_recipes.recipe_id = recipes.id").
		Where("saved_recipes.user_id = ?", userID).
		Order("saved_recipes.saved_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	return ModelsToRecipes(models), nil
}
