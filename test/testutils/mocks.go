// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRecipeRepository provides a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

// Create stores a recipe
func (m *MockRecipeRepository) Create(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

// FindByID finds a recipe by ID
func (m *MockRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*recipe.Recipe); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByUserID finds recipes by owner
func (m *MockRecipeRepository) FindByUserID(ctx context.Context, userID string) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, userID)
	if rs, ok := args.Get(0).([]*recipe.Recipe); ok {
		return rs, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateRating updates a recipe rating
func (m *MockRecipeRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	return m.Called(ctx, id, rating).Error(0)
}

// Delete deletes a recipe
func (m *MockRecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockSavedRecipeRepository provides a mock implementation of SavedRecipeRepository
type MockSavedRecipeRepository struct {
	mock.Mock
}

// Save stores a bookmark
func (m *MockSavedRecipeRepository) Save(ctx context.Context, saved *recipe.SavedRecipe) error {
	return m.Called(ctx, saved).Error(0)
}

// Remove deletes a bookmark
func (m *MockSavedRecipeRepository) Remove(ctx context.Context, userID string, recipeID uuid.UUID) error {
	return m.Called(ctx, userID, recipeID).Error(0)
}

// Exists reports whether a bookmark exists
func (m *MockSavedRecipeRepository) Exists(ctx context.Context, userID string, recipeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, recipeID)
	return args.Bool(0), args.Error(1)
}

// FindRecipesByUserID lists bookmarked recipes
func (m *MockSavedRecipeRepository) FindRecipesByUserID(ctx context.Context, userID string) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, userID)
	if rs, ok := args.Get(0).([]*recipe.Recipe); ok {
		return rs, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRecipeGenerator provides a mock implementation of RecipeGenerator
type MockRecipeGenerator struct {
	mock.Mock
}

// Generate calls the mocked backend
func (m *MockRecipeGenerator) Generate(ctx context.Context, accessToken string, req *recipe.GenerationRequest) (*recipe.GeneratedRecipe, error) {
	args := m.Called(ctx, accessToken, req)
	if g, ok := args.Get(0).(*recipe.GeneratedRecipe); ok {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockIdentityProvider provides a mock implementation of IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

// GetUser resolves a token
func (m *MockIdentityProvider) GetUser(ctx context.Context, accessToken string) (*user.User, error) {
	args := m.Called(ctx, accessToken)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// SignOut ends a remote session
func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

// AuthorizeURL builds the provider redirect
func (m *MockIdentityProvider) AuthorizeURL(provider, redirectTo string) string {
	return m.Called(provider, redirectTo).String(0)
}

// MemoryRevocationStore is an in-memory TokenRevocationStore
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore creates an empty store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

// Revoke marks a token as revoked for ttl
func (s *MemoryRevocationStore) Revoke(_ context.Context, accessToken string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[accessToken] = time.Now().Add(ttl)
	return nil
}

// IsRevoked reports whether a token is revoked
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, accessToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[accessToken]
	return ok && time.Now().Before(until), nil
}

// NoopMetrics discards business metrics
type NoopMetrics struct{}

func (NoopMetrics) RecordGeneration(string, time.Duration)   {}
func (NoopMetrics) RecordRecipeOperation(string, string)     {}
func (NoopMetrics) RecordAuthentication(string)              {}
