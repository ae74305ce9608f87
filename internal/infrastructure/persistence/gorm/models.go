// Package gorm provides GORM model definitions for the application
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID      string    `gorm:"type:varchar(255);not null;index"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`

	// Recipe details
	Ingredients  JSONColumn[[]recipe.Ingredient] `gorm:"type:json;not null"`
	Instructions JSONColumn[[]string]            `gorm:"type:json;not null"`
	CookingTime  JSONColumn[recipe.CookingTime]  `gorm:"type:json;not null"`

	Difficulty string  `gorm:"type:varchar(50);not null;default:'medium';index"`
	Servings   int     `gorm:"not null;default:4"`
	Rating     float64 `gorm:"not null;default:0;index"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// SavedRecipeModel represents a user's bookmark on a recipe
type SavedRecipeModel struct {
	ID       uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_saved_recipes_user_recipe"`
	RecipeID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_saved_recipes_user_recipe;index"`
	SavedAt  time.Time `gorm:"not null;index"`
}

// JSONColumn stores T as a JSON document (JSONB on Postgres)
type JSONColumn[T any] struct {
	Data T
}

// NewJSONColumn wraps v
func NewJSONColumn[T any](v T) JSONColumn[T] {
	return JSONColumn[T]{Data: v}
}

// Scan implements the sql.Scanner interface
func (j *JSONColumn[T]) Scan(value interface{}) error {
	var zero T
	if value == nil {
		j.Data = zero
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	default:
		return fmt.Errorf("cannot scan %T into JSONColumn", value)
	}
}

// Value implements the driver.Valuer interface
func (j JSONColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BeforeCreate hook for RecipeModel
func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for SavedRecipeModel
func (s *SavedRecipeModel) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}
	return nil
}

func (RecipeModel) TableName() string {
	return "recipes"
}

func (SavedRecipeModel) TableName() string {
	return "saved_recipes"
}
