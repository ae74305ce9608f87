// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/chefgpt/server/internal/domain/recipe"
	"github.com/chefgpt/server/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecipeAssertions provides recipe-specific assertion methods
type RecipeAssertions struct {
	t *testing.T
}

// NewRecipeAssertions creates a new recipe assertions helper
func NewRecipeAssertions(t *testing.T) *RecipeAssertions {
	return &RecipeAssertions{t: t}
}

// StoredRecipe asserts that a recipe came back from storage with an id,
// an owner and a creation time
func (ra *RecipeAssertions) StoredRecipe(r *recipe.Recipe, ownerID string, msgAndArgs ...interface{}) {
	require.NotNil(ra.t, r, "Recipe should not be nil")
	assert.NotEqual(ra.t, uuid.Nil, r.ID, "Recipe should have a valid ID")
	assert.Equal(ra.t, ownerID, r.UserID, msgAndArgs...)
	assert.False(ra.t, r.CreatedAt.IsZero(), "Recipe should have a creation time")
}

// IngredientNames asserts the ordered ingredient names of a recipe
func (ra *RecipeAssertions) IngredientNames(r *recipe.Recipe, expected []string, msgAndArgs ...interface{}) {
	require.NotNil(ra.t, r, "Recipe should not be nil")

	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	assert.Equal(ra.t, expected, names, msgAndArgs...)
}

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(resp *http.Response, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, resp.StatusCode, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(resp *http.Response, target interface{}, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	contentType := resp.Header.Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	err := json.NewDecoder(resp.Body).Decode(target)
	assert.NoError(ha.t, err, "Response should be valid JSON")
}

// ErrorResponse asserts the status, error code and message of an API error
func (ha *HTTPAssertions) ErrorResponse(resp *http.Response, status int, code errors.ErrorCode, expectedMessage string) {
	ha.StatusCode(resp, status)

	var body errors.ErrorResponse
	ha.JSONResponse(resp, &body)

	assert.Equal(ha.t, code, body.Code, "Unexpected error code")
	if expectedMessage != "" {
		assert.Contains(ha.t, body.Error, expectedMessage)
	}
	assert.NotEmpty(ha.t, body.Timestamp, "Error response should carry a timestamp")
}

// Header asserts that a header exists with expected value
func (ha *HTTPAssertions) Header(resp *http.Response, headerName, expectedValue string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedValue, resp.Header.Get(headerName), msgAndArgs...)
}

// HasHeader asserts that a header exists
func (ha *HTTPAssertions) HasHeader(resp *http.Response, headerName string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	_, exists := resp.Header[http.CanonicalHeaderKey(headerName)]
	assert.True(ha.t, exists, "Response should have header %s", headerName)
}

// SecurityHeaders asserts that security headers are present
func (ha *HTTPAssertions) SecurityHeaders(resp *http.Response) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	securityHeaders := []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Strict-Transport-Security",
		"Referrer-Policy",
		"Content-Security-Policy",
	}

	for _, header := range securityHeaders {
		ha.HasHeader(resp, header, "Security header %s should be present", header)
	}
}

// ClearedCookies asserts that every named cookie is expired by the response
func (ha *HTTPAssertions) ClearedCookies(resp *http.Response, names []string) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	cleared := make(map[string]bool)
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 && c.Value == "" {
			cleared[c.Name] = true
		}
	}
	for _, name := range names {
		assert.True(ha.t, cleared[name], "Cookie %s should be cleared", name)
	}
}

// DatabaseAssertions provides database-specific assertions
type DatabaseAssertions struct {
	t  *testing.T
	db *sql.DB
}

// NewDatabaseAssertions creates a new database assertions helper
func NewDatabaseAssertions(t *testing.T, db *sql.DB) *DatabaseAssertions {
	return &DatabaseAssertions{t: t, db: db}
}

// RecordCount asserts the number of records in a table
func (da *DatabaseAssertions) RecordCount(table string, expectedCount int, msgAndArgs ...interface{}) {
	var count int
	err := da.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	require.NoError(da.t, err, "Failed to count records in %s", table)
	assert.Equal(da.t, expectedCount, count, msgAndArgs...)
}

// TableEmpty asserts that a table is empty
func (da *DatabaseAssertions) TableEmpty(table string, msgAndArgs ...interface{}) {
	da.RecordCount(table, 0, msgAndArgs...)
}

// TableExists asserts that a table exists in the public schema
func (da *DatabaseAssertions) TableExists(table string) {
	var exists bool
	err := da.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
		table,
	).Scan(&exists)
	require.NoError(da.t, err, "Failed to look up table %s", table)
	assert.True(da.t, exists, "Table %s should exist", table)
}
