package apiserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	appauth "github.com/chefgpt/server/internal/application/auth"
	apprecipe "github.com/chefgpt/server/internal/application/recipe"
	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/internal/domain/user"
	"github.com/chefgpt/server/internal/infrastructure/config"
	"github.com/chefgpt/server/internal/infrastructure/generator"
	"github.com/chefgpt/server/internal/infrastructure/http/apiserver"
	"github.com/chefgpt/server/internal/infrastructure/monitoring"
	gormrepo "github.com/chefgpt/server/internal/infrastructure/persistence/gorm"
	"github.com/chefgpt/server/internal/infrastructure/persistence/sqlite"
	"github.com/chefgpt/server/internal/ports/outbound"
	"github.com/chefgpt/server/pkg/errors"
	"github.com/chefgpt/server/pkg/healthcheck"
	"github.com/chefgpt/server/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// APIServerTestSuite drives the router with SQLite storage, a fake
// generation backend and a mocked identity provider.
type APIServerTestSuite struct {
	suite.Suite
	handler     http.Handler
	identity    *testutils.MockIdentityProvider
	revocations *testutils.MemoryRevocationStore
	recipes     outbound.RecipeRepository
	saved       outbound.SavedRecipeRepository
	backend     *httptest.Server
	backendHits atomic.Int32
	backendBody atomic.Value
	backendResp func(w http.ResponseWriter)
	token       string
}

func (suite *APIServerTestSuite) SetupTest() {
	logger := zap.NewNop()

	db, err := sqlite.SetupDatabase("", nil)
	require.NoError(suite.T(), err)
	suite.recipes = gormrepo.NewRecipeRepository(db)
	suite.saved = gormrepo.NewSavedRecipeRepository(db)

	suite.backendHits.Store(0)
	suite.backendResp = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"title":"Crepes","description":"Thin pancakes","ingredients":[{"name":"egg"},{"name":"flour","amount":200,"unit":"g"}],"instructions":["mix","fry"],"cooking_time":{"prep_time":5,"cook_time":10}}`)
	}
	suite.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.backendHits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		suite.backendBody.Store(string(raw))
		suite.backendResp(w)
	}))

	suite.identity = new(testutils.MockIdentityProvider)
	suite.revocations = testutils.NewMemoryRevocationStore()
	metrics := monitoring.NewMetricsCollector(logger)

	cfg := &config.Config{
		App: config.AppConfig{Name: "ChefGPT", Version: "test"},
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              8080,
			AllowedOrigins:    []string{"http://localhost:3000"},
			EnableCompression: true,
			MaxBodyBytes:      1 << 20,
		},
		Auth: config.AuthConfig{
			PublicURL:    "http://api.test",
			CookieNames:  appauth.DefaultCookieNames,
			CookieMaxAge: time.Hour,
			Providers:    []string{"google"},
		},
		Monitoring: config.MonitoringConfig{
			EnableMetrics:   true,
			MetricsPath:     "/metrics",
			HealthCheckPath: "/health",
			ReadinessPath:   "/ready",
		},
	}

	gen := generator.NewClient(generator.Config{BaseURL: suite.backend.URL, Timeout: 5 * time.Second}, logger)
	recipeService := apprecipe.NewRecipeService(suite.recipes, suite.saved, gen, metrics, logger)
	authService := appauth.NewService(suite.identity, suite.revocations, metrics,
		appauth.Config{PublicURL: cfg.Auth.PublicURL, Providers: cfg.Auth.Providers}, logger)

	server := apiserver.NewAPIServer(cfg, logger, recipeService, authService, metrics, healthcheck.New("test", logger))
	suite.handler = server.Handler()
	suite.token = testutils.ValidAccessToken("user-1")
}

func (suite *APIServerTestSuite) TearDownTest() {
	suite.backend.Close()
	suite.identity.AssertExpectations(suite.T())
}

func (suite *APIServerTestSuite) expectUser(token, id string) {
	suite.identity.On("GetUser", mock.Anything, token).
		Return(&user.User{ID: id, Email: id + "@example.com"}, nil)
}

func (suite *APIServerTestSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	suite.handler.ServeHTTP(rec, req)
	return rec
}

func (suite *APIServerTestSuite) request(method, path, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{
			Name:  appauth.DefaultCookieNames[0],
			Value: appauth.EncodeCookieValue(&user.Session{AccessToken: token}),
		})
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (suite *APIServerTestSuite) TestGenerateRecipe_NoToken() {
	// Act
	rec := suite.do(suite.request(http.MethodPost, "/api/recipes/generate", `{"ingredients":["egg"]}`, ""))

	// Assert
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
	var body map[string]interface{}
	decodeBody(suite.T(), rec, &body)
	assert.Equal(suite.T(), appauth.MessageNoToken, body["error"])
	assert.Equal(suite.T(), int32(0), suite.backendHits.Load())
	suite.identity.AssertNotCalled(suite.T(), "GetUser", mock.Anything, mock.Anything)
}

func (suite *APIServerTestSuite) TestGenerateRecipe_EmptyIngredients() {
	suite.expectUser(suite.token, "user-1")
	cases := map[string]string{
		"EmptyList":   `{"ingredients":[]}`,
		"MissingList": `{"servings":2}`,
		"EmptyBody":   ``,
	}
	for name, body := range cases {
		suite.Run(name, func() {
			rec := suite.do(suite.request(http.MethodPost, "/api/recipes/generate", body, suite.token))

			assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
			var resp map[string]interface{}
			decodeBody(suite.T(), rec, &resp)
			assert.Equal(suite.T(), "Ingredients are required", resp["error"])
			assert.Equal(suite.T(), int32(0), suite.backendHits.Load())
		})
	}
}

func (suite *APIServerTestSuite) TestGenerateRecipe_BodyTokenFallback() {
	suite.expectUser(suite.token, "user-1")

	rec := suite.do(suite.request(http.MethodPost, "/api/recipes/generate",
		`{"ingredients":["egg","flour"],"access_token":"`+suite.token+`"}`, ""))

	assert.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(suite.T(), int32(1), suite.backendHits.Load())
}

func (suite *APIServerTestSuite) TestGenerateRecipe_Success() {
	// Arrange
	suite.expectUser(suite.token, "user-1")

	// Act
	rec := suite.do(suite.request(http.MethodPost, "/api/recipes/generate", `{"ingredients":["egg","flour"]}`, suite.token))

	// Assert
	require.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(suite.T(), int32(1), suite.backendHits.Load())
	assert.JSONEq(suite.T(),
		`{"ingredients":["egg","flour"],"user_id":"user-1","dietary_preferences":[],"cooking_time":30,"difficulty":"medium","servings":4}`,
		suite.backendBody.Load().(string))

	var created recipe.Recipe
	decodeBody(suite.T(), rec, &created)
	assert.Equal(suite.T(), "Crepes", created.Title)
	assert.Equal(suite.T(), float64(0), created.Rating)
	assert.Equal(suite.T(), "medium", created.Difficulty)
	assert.Equal(suite.T(), 4, created.Servings)
	assert.Equal(suite.T(), recipe.Amount("200"), created.Ingredients[1].Amount)
	assert.Equal(suite.T(), recipe.CookingTime{PrepTime: 5, CookTime: 10}, created.CookingTime)

	stored, err := suite.recipes.FindByUserID(context.Background(), "user-1")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), stored, 1)
	assert.Equal(suite.T(), created.ID, stored[0].ID)
}

func (suite *APIServerTestSuite) TestGenerateRecipe_UpstreamError() {
	suite.expectUser(suite.token, "user-1")
	suite.backendResp = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"detail":"Model is overloaded"}`)
	}

	rec := suite.do(suite.request(http.MethodPost, "/api/recipes/generate", `{"ingredients":["egg"]}`, suite.token))

	assert.Equal(suite.T(), http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	decodeBody(suite.T(), rec, &body)
	assert.Equal(suite.T(), "Model is overloaded", body["error"])

	stored, err := suite.recipes.FindByUserID(context.Background(), "user-1")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), stored)
}

func (suite *APIServerTestSuite) TestGenerateRecipe_InvalidJSON() {
	suite.expectUser(suite.token, "user-1")

	rec := suite.do(suite.request(http.MethodPost, "/api/recipes/generate", `{"ingredients":`, suite.token))

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "Invalid JSON payload")
	assert.Equal(suite.T(), int32(0), suite.backendHits.Load())
}

func (suite *APIServerTestSuite) TestRecipeLifecycle() {
	suite.expectUser(suite.token, "user-1")
	other := testutils.ValidAccessToken("user-2")
	suite.expectUser(other, "user-2")

	var created recipe.Recipe
	suite.Run("Create_ShouldReturn201", func() {
		rec := suite.do(suite.request(http.MethodPost, "/api/recipes",
			`{"title":"Toast","ingredients":[{"name":"bread","amount":2}],"instructions":["toast"],"cooking_time":5}`, suite.token))

		require.Equal(suite.T(), http.StatusCreated, rec.Code, rec.Body.String())
		decodeBody(suite.T(), rec, &created)
		recipes := testutils.NewRecipeAssertions(suite.T())
		recipes.StoredRecipe(&created, "user-1")
		recipes.IngredientNames(&created, []string{"bread"})
		assert.Equal(suite.T(), recipe.CookingTime{CookTime: 5, TotalTime: 5}, created.CookingTime)
		assert.Equal(suite.T(), float64(0), created.Rating)
	})

	path := "/api/recipes/" + created.ID.String()

	suite.Run("Create_WithoutTitle_ShouldReturn400", func() {
		rec := suite.do(suite.request(http.MethodPost, "/api/recipes", `{"ingredients":[{"name":"bread"}]}`, suite.token))

		assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
		assert.Contains(suite.T(), rec.Body.String(), "title is required")
	})

	suite.Run("Create_WithBlankIngredientName_ShouldReturn400", func() {
		rec := suite.do(suite.request(http.MethodPost, "/api/recipes", `{"title":"Toast","ingredients":[{"name":""}]}`, suite.token))

		assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
		assert.Contains(suite.T(), rec.Body.String(), "name is required")
	})

	suite.Run("List_ShouldContainRecipe", func() {
		rec := suite.do(suite.request(http.MethodGet, "/api/recipes", "", suite.token))

		require.Equal(suite.T(), http.StatusOK, rec.Code)
		var list []recipe.Recipe
		decodeBody(suite.T(), rec, &list)
		require.Len(suite.T(), list, 1)
		assert.Equal(suite.T(), created.ID, list[0].ID)
	})

	suite.Run("Rate_OutOfRange_ShouldReturn400", func() {
		rec := suite.do(suite.request(http.MethodPut, path+"/rating", `{"rating":7}`, suite.token))

		assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	})

	suite.Run("Rate_ShouldUpdateRating", func() {
		rec := suite.do(suite.request(http.MethodPut, path+"/rating", `{"rating":4.5}`, suite.token))

		require.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())
		var rated recipe.Recipe
		decodeBody(suite.T(), rec, &rated)
		assert.Equal(suite.T(), 4.5, rated.Rating)
	})

	suite.Run("Toggle_ShouldSaveThenUnsave", func() {
		rec := suite.do(suite.request(http.MethodPost, path+"/saved/toggle", "", other))
		require.Equal(suite.T(), http.StatusOK, rec.Code)
		assert.JSONEq(suite.T(), `{"recipe_id":"`+created.ID.String()+`","saved":true}`, rec.Body.String())

		rec = suite.do(suite.request(http.MethodGet, "/api/saved-recipes", "", other))
		require.Equal(suite.T(), http.StatusOK, rec.Code)
		var list []recipe.Recipe
		decodeBody(suite.T(), rec, &list)
		assert.Len(suite.T(), list, 1)

		rec = suite.do(suite.request(http.MethodPost, path+"/saved/toggle", "", other))
		assert.JSONEq(suite.T(), `{"recipe_id":"`+created.ID.String()+`","saved":false}`, rec.Body.String())
	})

	suite.Run("Delete_ByOtherUser_ShouldReturn403", func() {
		rec := suite.do(suite.request(http.MethodDelete, path, "", other))

		assert.Equal(suite.T(), http.StatusForbidden, rec.Code)
	})

	suite.Run("Delete_ByOwner_ShouldReturn204", func() {
		rec := suite.do(suite.request(http.MethodDelete, path, "", suite.token))
		assert.Equal(suite.T(), http.StatusNoContent, rec.Code)

		rec = suite.do(suite.request(http.MethodGet, path, "", suite.token))
		testutils.NewHTTPAssertions(suite.T()).
			ErrorResponse(rec.Result(), http.StatusNotFound, errors.CodeRecipeNotFound, "Recipe not found")
	})
}

func (suite *APIServerTestSuite) TestGetRecipe_InvalidID() {
	suite.expectUser(suite.token, "user-1")

	rec := suite.do(suite.request(http.MethodGet, "/api/recipes/not-a-uuid", "", suite.token))

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *APIServerTestSuite) TestProtectedRoutes_RequireSession() {
	rec := suite.do(suite.request(http.MethodGet, "/api/saved-recipes", "", ""))

	testutils.NewHTTPAssertions(suite.T()).
		ErrorResponse(rec.Result(), http.StatusUnauthorized, errors.CodeUnauthorized, appauth.MessageNoToken)
}

func (suite *APIServerTestSuite) TestSession() {
	suite.Run("Anonymous", func() {
		rec := suite.do(suite.request(http.MethodGet, "/api/auth/session", "", ""))

		require.Equal(suite.T(), http.StatusOK, rec.Code)
		assert.JSONEq(suite.T(), `{"authenticated":false,"user":null}`, rec.Body.String())
	})

	suite.Run("SignedIn", func() {
		suite.expectUser(suite.token, "user-1")

		rec := suite.do(suite.request(http.MethodGet, "/api/auth/session", "", suite.token))

		require.Equal(suite.T(), http.StatusOK, rec.Code)
		var body map[string]interface{}
		decodeBody(suite.T(), rec, &body)
		assert.Equal(suite.T(), true, body["authenticated"])
		assert.NotNil(suite.T(), body["expires_at"])
	})
}

func (suite *APIServerTestSuite) TestSignIn_RedirectsToProvider() {
	suite.identity.On("AuthorizeURL", "google", "http://api.test/auth/callback").
		Return("https://id.test/auth/v1/authorize?provider=google")

	rec := suite.do(suite.request(http.MethodGet, "/auth/signin", "", ""))

	assert.Equal(suite.T(), http.StatusFound, rec.Code)
	assert.Equal(suite.T(), "https://id.test/auth/v1/authorize?provider=google", rec.Header().Get("Location"))
}

func (suite *APIServerTestSuite) TestCallback() {
	suite.Run("ValidToken_ShouldSetCookie", func() {
		suite.expectUser(suite.token, "user-1")

		rec := suite.do(suite.request(http.MethodGet, "/auth/callback?access_token="+url.QueryEscape(suite.token), "", ""))

		assert.Equal(suite.T(), http.StatusFound, rec.Code)
		assert.Equal(suite.T(), "/recipes", rec.Header().Get("Location"))
		cookies := rec.Result().Cookies()
		require.Len(suite.T(), cookies, 1)
		assert.Equal(suite.T(), "sb-auth-token", cookies[0].Name)
		assert.True(suite.T(), cookies[0].HttpOnly)
		assert.Equal(suite.T(), suite.token, appauth.ParseCookieValue(cookies[0].Value))
	})

	suite.Run("NoToken_ShouldRedirectToLogin", func() {
		rec := suite.do(suite.request(http.MethodGet, "/auth/callback", "", ""))

		assert.Equal(suite.T(), http.StatusFound, rec.Code)
		assert.Equal(suite.T(), "/login", rec.Header().Get("Location"))
	})
}

func (suite *APIServerTestSuite) TestSignOut() {
	suite.Run("NoSession_ShouldClearCookiesWithoutRemoteCall", func() {
		rec := suite.do(suite.request(http.MethodPost, "/auth/signout", "", ""))

		assert.Equal(suite.T(), http.StatusSeeOther, rec.Code)
		assert.Equal(suite.T(), "/", rec.Header().Get("Location"))
		testutils.NewHTTPAssertions(suite.T()).ClearedCookies(rec.Result(), appauth.DefaultCookieNames)
		assert.Len(suite.T(), rec.Result().Cookies(), len(appauth.DefaultCookieNames))
		suite.identity.AssertNotCalled(suite.T(), "SignOut", mock.Anything, mock.Anything)
	})

	suite.Run("Session_ShouldSignOutRemotelyAndRevoke", func() {
		suite.identity.On("SignOut", mock.Anything, suite.token).Return(nil).Once()

		rec := suite.do(suite.request(http.MethodPost, "/auth/signout", "", suite.token))

		assert.Equal(suite.T(), http.StatusSeeOther, rec.Code)
		revoked, err := suite.revocations.IsRevoked(context.Background(), suite.token)
		require.NoError(suite.T(), err)
		assert.True(suite.T(), revoked)
	})
}

func (suite *APIServerTestSuite) TestOperationalEndpoints() {
	httpAssert := testutils.NewHTTPAssertions(suite.T())

	rec := suite.do(suite.request(http.MethodGet, "/health", "", ""))
	httpAssert.StatusCode(rec.Result(), http.StatusOK)
	httpAssert.SecurityHeaders(rec.Result())
	httpAssert.Header(rec.Result(), "X-Content-Type-Options", "nosniff")

	rec = suite.do(suite.request(http.MethodGet, "/ready", "", ""))
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	rec = suite.do(suite.request(http.MethodGet, "/metrics", "", ""))
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "http_requests_total")
}

func TestAPIServerTestSuite(t *testing.T) {
	suite.Run(t, new(APIServerTestSuite))
}
