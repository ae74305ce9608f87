package recipe

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/ports/inbound"
	"github.com/chefgpt/server/pkg/errors"
	"github.com/chefgpt/server/test/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// RecipeServiceTestSuite provides a test suite for RecipeService
type RecipeServiceTestSuite struct {
	suite.Suite
	recipes   *testutils.MockRecipeRepository
	saved     *testutils.MockSavedRecipeRepository
	generator *testutils.MockRecipeGenerator
	factory   *testutils.RecipeFactory
	service   inbound.RecipeService
	ctx       context.Context
}

// SetupTest runs before each test
func (suite *RecipeServiceTestSuite) SetupTest() {
	suite.recipes = new(testutils.MockRecipeRepository)
	suite.saved = new(testutils.MockSavedRecipeRepository)
	suite.generator = new(testutils.MockRecipeGenerator)
	suite.factory = testutils.NewRecipeFactory(42)
	suite.ctx = context.Background()
	suite.service = NewRecipeService(suite.recipes, suite.saved, suite.generator, testutils.NoopMetrics{}, zap.NewNop())
}

// TearDownTest verifies mock expectations
func (suite *RecipeServiceTestSuite) TearDownTest() {
	suite.recipes.AssertExpectations(suite.T())
	suite.saved.AssertExpectations(suite.T())
	suite.generator.AssertExpectations(suite.T())
}

func (suite *RecipeServiceTestSuite) TestGenerateRecipe() {
	suite.Run("Defaults_ShouldBeSentUpstreamAndStored", func() {
		suite.SetupTest()

		// Arrange
		generated := &recipe.GeneratedRecipe{
			Title:       "Crepes",
			Ingredients: []recipe.Ingredient{{Name: "egg"}, {Name: "flour", Amount: "200", Unit: "g"}},
		}
		expected := &recipe.GenerationRequest{
			Ingredients:        []string{"egg", "flour"},
			UserID:             "user-1",
			DietaryPreferences: []string{},
			CookingTime:        30,
			Difficulty:         "medium",
			Servings:           4,
		}
		suite.generator.On("Generate", mock.Anything, "token-1", expected).Return(generated, nil).Once()
		suite.recipes.On("Create", mock.Anything, mock.MatchedBy(func(r *recipe.Recipe) bool {
			return r.UserID == "user-1" && r.Title == "Crepes" && r.Rating == 0 &&
				r.Difficulty == "medium" && r.Servings == 4 && r.Ingredients[0].Amount == ""
		})).Return(nil).Once()

		// Act
		got, err := suite.service.GenerateRecipe(suite.ctx, inbound.GenerateRecipeCommand{
			UserID:      "user-1",
			AccessToken: "token-1",
			Ingredients: []string{"egg", "flour"},
		})

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "Crepes", got.Title)
		assert.Equal(suite.T(), recipe.CookingTime{}, got.CookingTime)
	})

	suite.Run("NoIngredients_ShouldFailBeforeUpstream", func() {
		suite.SetupTest()

		_, err := suite.service.GenerateRecipe(suite.ctx, inbound.GenerateRecipeCommand{UserID: "user-1"})

		require.Error(suite.T(), err)
		assert.True(suite.T(), errors.Is(err, errors.CodeValidationFailed))
		var appErr *errors.AppError
		require.True(suite.T(), stderrors.As(err, &appErr))
		assert.Equal(suite.T(), "Ingredients are required", appErr.Message)
		suite.generator.AssertNotCalled(suite.T(), "Generate", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("UpstreamError_ShouldKeepStatusAndSkipStorage", func() {
		suite.SetupTest()

		upstream := errors.NewExternalServiceError("generator", "Quota exceeded", http.StatusTooManyRequests)
		suite.generator.On("Generate", mock.Anything, "token-1", mock.Anything).Return(nil, upstream).Once()

		_, err := suite.service.GenerateRecipe(suite.ctx, inbound.GenerateRecipeCommand{
			UserID:      "user-1",
			AccessToken: "token-1",
			Ingredients: []string{"rice"},
		})

		var appErr *errors.AppError
		require.True(suite.T(), stderrors.As(err, &appErr))
		assert.Equal(suite.T(), http.StatusTooManyRequests, appErr.StatusCode())
		assert.Equal(suite.T(), "Quota exceeded", appErr.Message)
		suite.recipes.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
	})

	suite.Run("TransportError_ShouldBeInternal", func() {
		suite.SetupTest()

		suite.generator.On("Generate", mock.Anything, "token-1", mock.Anything).
			Return(nil, stderrors.New("connection refused")).Once()

		_, err := suite.service.GenerateRecipe(suite.ctx, inbound.GenerateRecipeCommand{
			UserID:      "user-1",
			AccessToken: "token-1",
			Ingredients: []string{"rice"},
		})

		assert.Equal(suite.T(), errors.CodeInternal, errors.GetCode(err))
	})

	suite.Run("Span_ShouldRecordUpstreamFailure", func() {
		suite.SetupTest()
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		suite.service.(*RecipeService).tracer = tp.Tracer("test")

		suite.generator.On("Generate", mock.Anything, "token-1", mock.Anything).
			Return(nil, errors.NewExternalServiceError("generator", "Bad gateway", http.StatusBadGateway)).Once()

		_, err := suite.service.GenerateRecipe(suite.ctx, inbound.GenerateRecipeCommand{
			UserID:      "user-1",
			AccessToken: "token-1",
			Ingredients: []string{"rice", "beans"},
		})
		require.Error(suite.T(), err)

		spans := recorder.Ended()
		require.Len(suite.T(), spans, 1)
		assert.Equal(suite.T(), "recipe.generate", spans[0].Name())
		assert.Equal(suite.T(), codes.Error, spans[0].Status().Code)
		assert.Contains(suite.T(), spans[0].Attributes(), attribute.Int("recipe.ingredients", 2))
	})

	suite.Run("StorageError_ShouldReportFailedToSave", func() {
		suite.SetupTest()

		suite.generator.On("Generate", mock.Anything, "token-1", mock.Anything).
			Return(suite.factory.CreateGeneratedRecipe(), nil).Once()
		suite.recipes.On("Create", mock.Anything, mock.Anything).Return(stderrors.New("disk full")).Once()

		_, err := suite.service.GenerateRecipe(suite.ctx, inbound.GenerateRecipeCommand{
			UserID:      "user-1",
			AccessToken: "token-1",
			Ingredients: []string{"rice"},
		})

		var appErr *errors.AppError
		require.True(suite.T(), stderrors.As(err, &appErr))
		assert.Equal(suite.T(), errors.CodeDatabaseError, appErr.Code)
		assert.Equal(suite.T(), "Failed to save recipe", appErr.Message)
		assert.Equal(suite.T(), http.StatusInternalServerError, appErr.StatusCode())
	})
}

func (suite *RecipeServiceTestSuite) TestGetRecipe() {
	suite.Run("Missing_ShouldReturnNotFound", func() {
		suite.SetupTest()
		id := uuid.New()
		suite.recipes.On("FindByID", mock.Anything, id).Return(nil, recipe.ErrRecipeNotFound).Once()

		_, err := suite.service.GetRecipe(suite.ctx, id)

		assert.True(suite.T(), errors.Is(err, errors.CodeRecipeNotFound))
	})

	suite.Run("Existing_ShouldReturnRow", func() {
		suite.SetupTest()
		r := suite.factory.CreateRecipe("user-1")
		suite.recipes.On("FindByID", mock.Anything, r.ID).Return(r, nil).Once()

		got, err := suite.service.GetRecipe(suite.ctx, r.ID)

		require.NoError(suite.T(), err)
		assert.Same(suite.T(), r, got)
	})
}

func (suite *RecipeServiceTestSuite) TestRateRecipe() {
	suite.Run("OutOfRange_ShouldFailValidation", func() {
		suite.SetupTest()

		_, err := suite.service.RateRecipe(suite.ctx, inbound.RateRecipeCommand{RecipeID: uuid.New(), UserID: "u", Rating: 6})

		assert.True(suite.T(), errors.Is(err, errors.CodeValidationFailed))
	})

	suite.Run("Valid_ShouldUpdateRating", func() {
		suite.SetupTest()
		r := suite.factory.CreateRecipe("owner")
		suite.recipes.On("FindByID", mock.Anything, r.ID).Return(r, nil).Once()
		suite.recipes.On("UpdateRating", mock.Anything, r.ID, 4.0).Return(nil).Once()

		got, err := suite.service.RateRecipe(suite.ctx, inbound.RateRecipeCommand{RecipeID: r.ID, UserID: "someone-else", Rating: 4})

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), 4.0, got.Rating)
	})

	suite.Run("Rerate_ShouldReturnNewRatingAndTimestamp", func() {
		suite.SetupTest()
		// Arrange
		past := time.Now().UTC().Add(-24 * time.Hour)
		r := suite.factory.NewRecipeBuilder().
			WithUser("owner").
			WithTitle("Shakshuka").
			WithRating(1).
			CreatedAt(past).
			Build()
		suite.recipes.On("FindByID", mock.Anything, r.ID).Return(r, nil).Once()
		suite.recipes.On("UpdateRating", mock.Anything, r.ID, 4.5).Return(nil).Once()

		// Act
		got, err := suite.service.RateRecipe(suite.ctx, inbound.RateRecipeCommand{RecipeID: r.ID, UserID: "owner", Rating: 4.5})

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), 4.5, got.Rating)
		assert.Equal(suite.T(), "Shakshuka", got.Title)
		assert.True(suite.T(), got.UpdatedAt.After(past))
		assert.Equal(suite.T(), past, got.CreatedAt)
	})
}

func (suite *RecipeServiceTestSuite) TestDeleteRecipe() {
	suite.Run("NonOwner_ShouldBeForbidden", func() {
		suite.SetupTest()
		r := suite.factory.CreateRecipe("owner")
		suite.recipes.On("FindByID", mock.Anything, r.ID).Return(r, nil).Once()

		err := suite.service.DeleteRecipe(suite.ctx, r.ID, "intruder")

		assert.True(suite.T(), errors.Is(err, errors.CodeNotRecipeOwner))
		suite.recipes.AssertNotCalled(suite.T(), "Delete", mock.Anything, mock.Anything)
	})

	suite.Run("Owner_ShouldDelete", func() {
		suite.SetupTest()
		r := suite.factory.CreateRecipe("owner")
		suite.recipes.On("FindByID", mock.Anything, r.ID).Return(r, nil).Once()
		suite.recipes.On("Delete", mock.Anything, r.ID).Return(nil).Once()

		assert.NoError(suite.T(), suite.service.DeleteRecipe(suite.ctx, r.ID, "owner"))
	})
}

func (suite *RecipeServiceTestSuite) TestToggleSavedRecipe() {
	suite.Run("NotSaved_ShouldSave", func() {
		suite.SetupTest()
		r := suite.factory.CreateRecipe("owner")
		suite.saved.On("Exists", mock.Anything, "reader", r.ID).Return(false, nil).Once()
		suite.recipes.On("FindByID", mock.Anything, r.ID).Return(r, nil).Once()
		suite.saved.On("Save", mock.Anything, mock.MatchedBy(func(s *recipe.SavedRecipe) bool {
			return s.UserID == "reader" && s.RecipeID == r.ID && !s.SavedAt.IsZero()
		})).Return(nil).Once()

		saved, err := suite.service.ToggleSavedRecipe(suite.ctx, r.ID, "reader")

		require.NoError(suite.T(), err)
		assert.True(suite.T(), saved)
	})

	suite.Run("Saved_ShouldRemove", func() {
		suite.SetupTest()
		id := uuid.New()
		suite.saved.On("Exists", mock.Anything, "reader", id).Return(true, nil).Once()
		suite.saved.On("Remove", mock.Anything, "reader", id).Return(nil).Once()

		saved, err := suite.service.ToggleSavedRecipe(suite.ctx, id, "reader")

		require.NoError(suite.T(), err)
		assert.False(suite.T(), saved)
	})

	suite.Run("SaveUnknownRecipe_ShouldReturnNotFound", func() {
		suite.SetupTest()
		id := uuid.New()
		suite.recipes.On("FindByID", mock.Anything, id).Return(nil, recipe.ErrRecipeNotFound).Once()

		err := suite.service.SaveRecipe(suite.ctx, id, "reader")

		assert.True(suite.T(), errors.Is(err, errors.CodeRecipeNotFound))
	})
}

func (suite *RecipeServiceTestSuite) TestListRecipes() {
	r1 := suite.factory.CreateRecipe("user-1")
	r2 := suite.factory.CreateRecipe("user-1")
	suite.recipes.On("FindByUserID", mock.Anything, "user-1").Return([]*recipe.Recipe{r2, r1}, nil).Once()

	got, err := suite.service.ListRecipes(suite.ctx, "user-1")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []*recipe.Recipe{r2, r1}, got)
}

func TestRecipeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeServiceTestSuite))
}
