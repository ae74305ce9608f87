// Package errors provides structured error handling for the application.
// Every failure that leaves a handler is an AppError carrying a code that
// maps to an HTTP status.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	CodeRecipeNotFound ErrorCode = "RECIPE_NOT_FOUND"
	CodeNotRecipeOwner ErrorCode = "NOT_RECIPE_OWNER"
)

// statusByCode is the default HTTP status per code; unknown codes are 500.
var statusByCode = map[ErrorCode]int{
	CodeBadRequest:           http.StatusBadRequest,
	CodeValidationFailed:     http.StatusBadRequest,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeForbidden:            http.StatusForbidden,
	CodeNotRecipeOwner:       http.StatusForbidden,
	CodeNotFound:             http.StatusNotFound,
	CodeRecipeNotFound:       http.StatusNotFound,
	CodeExternalServiceError: http.StatusBadGateway,
}

// AppError is a failure with a stable code, a caller-facing message and
// optional detail for the logs.
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`

	// status overrides the code-derived HTTP status
	status int
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status for the error
func (e *AppError) StatusCode() int {
	if e.status != 0 {
		return e.status
	}
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithStatus pins the HTTP status returned for this error.
func (e *AppError) WithStatus(status int) *AppError {
	e.status = status
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

func withDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewValidationError creates a validation error whose message is shown
// to the caller as is.
func NewValidationError(message string) *AppError {
	return NewAppError(CodeValidationFailed, message, "")
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(CodeUnauthorized, withDefault(message, "Authentication required"), "")
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(CodeInternal, withDefault(message, "Internal server error"), "")
}

// NewDatabaseError creates a persistence error. The message is what the
// caller sees; the operation stays in Details for the logs.
func NewDatabaseError(message, operation string, cause error) *AppError {
	return NewAppError(CodeDatabaseError, message, "failed to "+operation).WithCause(cause)
}

// NewExternalServiceError creates an upstream failure that keeps the status
// answered by the remote service.
func NewExternalServiceError(service, message string, status int) *AppError {
	return NewAppError(CodeExternalServiceError, message, "").
		WithMetadata("service", service).
		WithStatus(status)
}

// NewRecipeNotFoundError creates a recipe not found error
func NewRecipeNotFoundError(recipeID string) *AppError {
	return NewAppError(CodeRecipeNotFound, "Recipe not found",
		fmt.Sprintf("recipe with ID %s does not exist", recipeID),
	).WithMetadata("recipe_id", recipeID)
}

// NewNotRecipeOwnerError creates an ownership error
func NewNotRecipeOwnerError(recipeID string) *AppError {
	return NewAppError(CodeNotRecipeOwner, "Only the recipe owner can perform this action", "").
		WithMetadata("recipe_id", recipeID)
}

// Wrap returns the AppError inside err, or an internal error caused by err
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ErrorResponse is the JSON body written for every failed request. The
// top-level "error" string is what browser clients display.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     err.Message,
		Code:      err.Code,
		RequestID: requestID,
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
	}
}
