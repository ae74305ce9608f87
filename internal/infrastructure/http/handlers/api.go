// Package handlers provides HTTP handlers for the JSON API
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/chefgpt/server/pkg/errors"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// responder writes JSON bodies and maps errors to HTTP responses once, at
// the edge of the service.
type responder struct {
	logger *zap.Logger
}

// writeJSON writes a JSON response
func (h responder) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError renders err as {"error", "code", "request_id"}
func (h responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	status := appErr.StatusCode()

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	h.writeJSON(w, status, errors.ToErrorResponse(appErr, middleware.GetReqID(r.Context())))
}

// WriteError is the error renderer handed to middleware
func WriteError(logger *zap.Logger) func(w http.ResponseWriter, r *http.Request, err error) {
	return responder{logger: logger}.writeError
}

func toAppError(err error) *errors.AppError {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.NewBadRequestError("Request body too large").
			WithStatus(http.StatusRequestEntityTooLarge).
			WithCause(err)
	}
	return errors.Wrap(err, "")
}

// decodeJSON reads a JSON body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return err
		}
		return errors.NewBadRequestError(MessageInvalidJSON).WithCause(err)
	}
	return nil
}

// MessageInvalidJSON is returned for bodies that are not valid JSON
const MessageInvalidJSON = "Invalid JSON payload"
