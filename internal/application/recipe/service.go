// Package recipe provides the application layer for recipe management
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/ports/inbound"
	"github.com/chefgpt/server/internal/ports/outbound"
	"github.com/chefgpt/server/pkg/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/chefgpt/server/internal/application/recipe"

// Outcomes reported to the metrics recorder
const (
	outcomeSuccess  = "success"
	outcomeUpstream = "upstream_error"
	outcomeStorage  = "storage_error"
	outcomeFailure  = "error"
)

// RecipeService implements the recipe use cases
type RecipeService struct {
	recipeRepo outbound.RecipeRepository
	savedRepo  outbound.SavedRecipeRepository
	generator  outbound.RecipeGenerator
	metrics    outbound.MetricsRecorder
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewRecipeService creates a new recipe service
func NewRecipeService(
	recipeRepo outbound.RecipeRepository,
	savedRepo outbound.SavedRecipeRepository,
	generator outbound.RecipeGenerator,
	metrics outbound.MetricsRecorder,
	logger *zap.Logger,
) inbound.RecipeService {
	return &RecipeService{
		recipeRepo: recipeRepo,
		savedRepo:  savedRepo,
		generator:  generator,
		metrics:    metrics,
		logger:     logger.Named("recipe-service"),
		tracer:     otel.Tracer(tracerName),
	}
}

// GenerateRecipe forwards the request to the generation backend and stores
// the reshaped result as a new row owned by the caller.
func (s *RecipeService) GenerateRecipe(ctx context.Context, cmd inbound.GenerateRecipeCommand) (_ *recipe.Recipe, err error) {
	ctx, span := s.tracer.Start(ctx, "recipe.generate",
		trace.WithAttributes(attribute.Int("recipe.ingredients", len(cmd.Ingredients))),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
		}
		span.End()
	}()

	req, err := recipe.NewGenerationRequest(
		cmd.UserID,
		cmd.Ingredients,
		cmd.DietaryPreferences,
		cmd.CookingTime,
		cmd.Difficulty,
		cmd.Servings,
	)
	if err != nil {
		return nil, errors.NewValidationError("Ingredients are required")
	}

	s.logger.Info("Generating recipe",
		zap.String("user_id", cmd.UserID),
		zap.Int("ingredients", len(req.Ingredients)),
		zap.String("difficulty", req.Difficulty),
	)

	start := time.Now()
	generated, err := s.generator.Generate(ctx, cmd.AccessToken, req)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			s.metrics.RecordGeneration(outcomeUpstream, time.Since(start))
			s.logger.Warn("Recipe generation rejected by backend",
				zap.String("user_id", cmd.UserID),
				zap.Int("status", appErr.StatusCode()),
				zap.String("message", appErr.Message),
			)
			return nil, appErr
		}
		s.metrics.RecordGeneration(outcomeFailure, time.Since(start))
		s.logger.Error("Recipe generation failed", zap.String("user_id", cmd.UserID), zap.Error(err))
		return nil, errors.NewInternalError("").WithCause(err)
	}

	entity := generated.ToRecipe(cmd.UserID)
	if err := s.recipeRepo.Create(ctx, entity); err != nil {
		s.metrics.RecordGeneration(outcomeStorage, time.Since(start))
		s.logger.Error("Failed to save generated recipe", zap.String("user_id", cmd.UserID), zap.Error(err))
		return nil, errors.NewDatabaseError("Failed to save recipe", "insert recipe", err)
	}

	s.metrics.RecordGeneration(outcomeSuccess, time.Since(start))
	span.SetAttributes(attribute.String("recipe.id", entity.ID.String()))
	s.logger.Info("Recipe generated",
		zap.String("recipe_id", entity.ID.String()),
		zap.String("title", entity.Title),
		zap.Duration("duration", time.Since(start)),
	)

	return entity, nil
}

// CreateRecipe stores a client-supplied recipe with a zero rating
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd inbound.CreateRecipeCommand) (*recipe.Recipe, error) {
	entity := recipe.NewRecipe(
		cmd.UserID,
		cmd.Title,
		cmd.Description,
		cmd.Ingredients,
		cmd.Instructions,
		cmd.CookingTime,
		cmd.Difficulty,
		cmd.Servings,
	)

	if err := s.recipeRepo.Create(ctx, entity); err != nil {
		s.metrics.RecordRecipeOperation("create", outcomeStorage)
		return nil, errors.NewDatabaseError("Failed to save recipe", "insert recipe", err)
	}

	s.metrics.RecordRecipeOperation("create", outcomeSuccess)
	s.logger.Info("Recipe created",
		zap.String("recipe_id", entity.ID.String()),
		zap.String("user_id", cmd.UserID),
	)
	return entity, nil
}

// GetRecipe retrieves a recipe by ID
func (s *RecipeService) GetRecipe(ctx context.Context, recipeID uuid.UUID) (*recipe.Recipe, error) {
	entity, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecipeOperation("get", outcomeSuccess)
	return entity, nil
}

// ListRecipes returns the user's recipes, newest first
func (s *RecipeService) ListRecipes(ctx context.Context, userID string) ([]*recipe.Recipe, error) {
	recipes, err := s.recipeRepo.FindByUserID(ctx, userID)
	if err != nil {
		s.metrics.RecordRecipeOperation("list", outcomeStorage)
		return nil, errors.NewDatabaseError("Failed to load recipes", "list recipes", err)
	}
	s.metrics.RecordRecipeOperation("list", outcomeSuccess)
	return recipes, nil
}

// RateRecipe validates and stores a new rating
func (s *RecipeService) RateRecipe(ctx context.Context, cmd inbound.RateRecipeCommand) (*recipe.Recipe, error) {
	if err := recipe.ValidateRating(cmd.Rating); err != nil {
		return nil, errors.NewValidationError("Rating must be between 0 and 5")
	}

	entity, err := s.findRecipe(ctx, cmd.RecipeID)
	if err != nil {
		return nil, err
	}

	if err := s.recipeRepo.UpdateRating(ctx, cmd.RecipeID, cmd.Rating); err != nil {
		s.metrics.RecordRecipeOperation("rate", outcomeStorage)
		return nil, errors.NewDatabaseError("Failed to update rating", "update rating", err)
	}
	entity.Rating = cmd.Rating
	entity.UpdatedAt = time.Now().UTC()

	s.metrics.RecordRecipeOperation("rate", outcomeSuccess)
	s.logger.Info("Recipe rated",
		zap.String("recipe_id", cmd.RecipeID.String()),
		zap.String("user_id", cmd.UserID),
		zap.Float64("rating", cmd.Rating),
	)
	return entity, nil
}

// DeleteRecipe removes a recipe owned by the user
func (s *RecipeService) DeleteRecipe(ctx context.Context, recipeID uuid.UUID, userID string) error {
	entity, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return err
	}

	if !entity.IsOwnedBy(userID) {
		s.logger.Warn("Delete refused for non-owner",
			zap.String("recipe_id", recipeID.String()),
			zap.String("user_id", userID),
		)
		return errors.NewNotRecipeOwnerError(recipeID.String())
	}

	if err := s.recipeRepo.Delete(ctx, recipeID); err != nil {
		s.metrics.RecordRecipeOperation("delete", outcomeStorage)
		return errors.NewDatabaseError("Failed to delete recipe", "delete recipe", err)
	}

	s.metrics.RecordRecipeOperation("delete", outcomeSuccess)
	s.logger.Info("Recipe deleted", zap.String("recipe_id", recipeID.String()))
	return nil
}

// SaveRecipe bookmarks a recipe for the user
func (s *RecipeService) SaveRecipe(ctx context.Context, recipeID uuid.UUID, userID string) error {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}

	saved := &recipe.SavedRecipe{
		UserID:   userID,
		RecipeID: recipeID,
		SavedAt:  time.Now().UTC(),
	}
	if err := s.savedRepo.Save(ctx, saved); err != nil {
		s.metrics.RecordRecipeOperation("save", outcomeStorage)
		return errors.NewDatabaseError("Failed to save recipe", "insert saved recipe", err)
	}

	s.metrics.RecordRecipeOperation("save", outcomeSuccess)
	return nil
}

// UnsaveRecipe removes a bookmark. Removing a missing bookmark is not an error.
func (s *RecipeService) UnsaveRecipe(ctx context.Context, recipeID uuid.UUID, userID string) error {
	if err := s.savedRepo.Remove(ctx, userID, recipeID); err != nil {
		s.metrics.RecordRecipeOperation("unsave", outcomeStorage)
		return errors.NewDatabaseError("Failed to remove saved recipe", "delete saved recipe", err)
	}
	s.metrics.RecordRecipeOperation("unsave", outcomeSuccess)
	return nil
}

// IsRecipeSaved reports whether the user bookmarked the recipe
func (s *RecipeService) IsRecipeSaved(ctx context.Context, recipeID uuid.UUID, userID string) (bool, error) {
	saved, err := s.savedRepo.Exists(ctx, userID, recipeID)
	if err != nil {
		return false, errors.NewDatabaseError("Failed to check saved recipe", "query saved recipe", err)
	}
	return saved, nil
}

// ToggleSavedRecipe flips the bookmark and returns the new state
func (s *RecipeService) ToggleSavedRecipe(ctx context.Context, recipeID uuid.UUID, userID string) (bool, error) {
	saved, err := s.IsRecipeSaved(ctx, recipeID, userID)
	if err != nil {
		return false, err
	}

	if saved {
		return false, s.UnsaveRecipe(ctx, recipeID, userID)
	}
	if err := s.SaveRecipe(ctx, recipeID, userID); err != nil {
		return false, err
	}
	return true, nil
}

// ListSavedRecipes returns the user's bookmarked recipes
func (s *RecipeService) ListSavedRecipes(ctx context.Context, userID string) ([]*recipe.Recipe, error) {
	recipes, err := s.savedRepo.FindRecipesByUserID(ctx, userID)
	if err != nil {
		s.metrics.RecordRecipeOperation("list_saved", outcomeStorage)
		return nil, errors.NewDatabaseError("Failed to load saved recipes", "list saved recipes", err)
	}
	s.metrics.RecordRecipeOperation("list_saved", outcomeSuccess)
	return recipes, nil
}

func (s *RecipeService) findRecipe(ctx context.Context, recipeID uuid.UUID) (*recipe.Recipe, error) {
	entity, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		if stderrors.Is(err, recipe.ErrRecipeNotFound) {
			return nil, errors.NewRecipeNotFoundError(recipeID.String())
		}
		return nil, errors.NewDatabaseError("Failed to load recipe", "find recipe", err)
	}
	return entity, nil
}
