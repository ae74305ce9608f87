package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/chefgpt/server/internal/application/auth"
	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/infrastructure/http/middleware"
	"github.com/chefgpt/server/internal/ports/inbound"
	"github.com/chefgpt/server/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecipeAPIHandlers serves the recipe pages and the generation proxy
type RecipeAPIHandlers struct {
	responder
	recipeService inbound.RecipeService
	authService   inbound.AuthService
	cookieNames   []string
}

// NewRecipeAPIHandlers creates recipe handlers
func NewRecipeAPIHandlers(
	recipeService inbound.RecipeService,
	authService inbound.AuthService,
	cookieNames []string,
	logger *zap.Logger,
) *RecipeAPIHandlers {
	if len(cookieNames) == 0 {
		cookieNames = auth.DefaultCookieNames
	}
	return &RecipeAPIHandlers{
		responder:     responder{logger: logger.Named("recipe-api")},
		recipeService: recipeService,
		authService:   authService,
		cookieNames:   cookieNames,
	}
}

// GenerateRecipeRequest is the body of POST /api/recipes/generate. The
// access token may travel in the body when the client has no cookie.
type GenerateRecipeRequest struct {
	Ingredients        recipe.IngredientList `json:"ingredients"`
	DietaryPreferences []string              `json:"dietary_preferences"`
	CookingTime        int                   `json:"cooking_time"`
	Difficulty         string                `json:"difficulty"`
	Servings           int                   `json:"servings"`
	AccessToken        string                `json:"access_token"`
}

// CreateRecipeRequest is the body of POST /api/recipes
type CreateRecipeRequest struct {
	Title        string              `json:"title" validate:"required,max=200"`
	Description  string              `json:"description" validate:"max=2000"`
	Ingredients  []IngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	Instructions []string            `json:"instructions"`
	CookingTime  recipe.CookingTime  `json:"cooking_time"`
	Difficulty   string              `json:"difficulty" validate:"max=50"`
	Servings     int                 `json:"servings" validate:"gte=0,lte=100"`
}

// IngredientRequest is one ingredient of a manually created recipe
type IngredientRequest struct {
	Name   string        `json:"name" validate:"required,max=200"`
	Amount recipe.Amount `json:"amount"`
	Unit   string        `json:"unit" validate:"max=50"`
}

func toIngredients(in []IngredientRequest) []recipe.Ingredient {
	out := make([]recipe.Ingredient, len(in))
	for i, ing := range in {
		out[i] = recipe.Ingredient{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit}
	}
	return out
}

// RateRecipeRequest is the body of PUT /api/recipes/{id}/rating
type RateRecipeRequest struct {
	Rating *float64 `json:"rating" validate:"required,gte=0,lte=5"`
}

// SavedStatusResponse reports whether a recipe is bookmarked
type SavedStatusResponse struct {
	RecipeID uuid.UUID `json:"recipe_id"`
	Saved    bool      `json:"saved"`
}

// GenerateRecipe handles POST /api/recipes/generate. The body is read once:
// it supplies both the fallback token and the generation parameters.
func (h *RecipeAPIHandlers) GenerateRecipe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req GenerateRecipeRequest
	var parseErr error
	if len(bytes.TrimSpace(body)) > 0 {
		parseErr = json.Unmarshal(body, &req)
	}

	token := auth.ResolveToken(r, h.cookieNames)
	if token == "" && parseErr == nil {
		token = req.AccessToken
	}

	u, err := h.authService.CurrentUser(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if parseErr != nil {
		h.writeError(w, r, errors.NewBadRequestError(MessageInvalidJSON).WithCause(parseErr))
		return
	}

	created, err := h.recipeService.GenerateRecipe(r.Context(), inbound.GenerateRecipeCommand{
		UserID:             u.ID,
		AccessToken:        token,
		Ingredients:        req.Ingredients,
		DietaryPreferences: req.DietaryPreferences,
		CookingTime:        req.CookingTime,
		Difficulty:         req.Difficulty,
		Servings:           req.Servings,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, created)
}

// ListRecipes handles GET /api/recipes
func (h *RecipeAPIHandlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	recipes, err := h.recipeService.ListRecipes(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, nonNil(recipes))
}

// CreateRecipe handles POST /api/recipes
func (h *RecipeAPIHandlers) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req CreateRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	created, err := h.recipeService.CreateRecipe(r.Context(), inbound.CreateRecipeCommand{
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Ingredients:  toIngredients(req.Ingredients),
		Instructions: req.Instructions,
		CookingTime:  req.CookingTime,
		Difficulty:   req.Difficulty,
		Servings:     req.Servings,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// GetRecipe handles GET /api/recipes/{id}
func (h *RecipeAPIHandlers) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	found, err := h.recipeService.GetRecipe(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, found)
}

// DeleteRecipe handles DELETE /api/recipes/{id}
func (h *RecipeAPIHandlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.recipeService.DeleteRecipe(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RateRecipe handles PUT /api/recipes/{id}/rating
func (h *RecipeAPIHandlers) RateRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	var req RateRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	rated, err := h.recipeService.RateRecipe(r.Context(), inbound.RateRecipeCommand{
		RecipeID: id,
		UserID:   userID,
		Rating:   *req.Rating,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rated)
}

// SavedStatus handles GET /api/recipes/{id}/saved
func (h *RecipeAPIHandlers) SavedStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	saved, err := h.recipeService.IsRecipeSaved(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SavedStatusResponse{RecipeID: id, Saved: saved})
}

// SaveRecipe handles PUT /api/recipes/{id}/saved
func (h *RecipeAPIHandlers) SaveRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.recipeService.SaveRecipe(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SavedStatusResponse{RecipeID: id, Saved: true})
}

// UnsaveRecipe handles DELETE /api/recipes/{id}/saved
func (h *RecipeAPIHandlers) UnsaveRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.recipeService.UnsaveRecipe(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SavedStatusResponse{RecipeID: id, Saved: false})
}

// ToggleSavedRecipe handles POST /api/recipes/{id}/saved/toggle
func (h *RecipeAPIHandlers) ToggleSavedRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	saved, err := h.recipeService.ToggleSavedRecipe(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SavedStatusResponse{RecipeID: id, Saved: saved})
}

// ListSavedRecipes handles GET /api/saved-recipes
func (h *RecipeAPIHandlers) ListSavedRecipes(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	recipes, err := h.recipeService.ListSavedRecipes(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, nonNil(recipes))
}

func (h *RecipeAPIHandlers) recipeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, errors.NewBadRequestError("Invalid recipe ID").WithCause(err))
		return uuid.Nil, false
	}
	return id, true
}

func nonNil(recipes []*recipe.Recipe) []*recipe.Recipe {
	if recipes == nil {
		return []*recipe.Recipe{}
	}
	return recipes
}
