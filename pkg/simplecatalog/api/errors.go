package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// Error codes returned in the "error" field of failed responses
const (
	CodeMissingInput     = "MISSING_INPUT"
	CodeInvalidMetadata  = "INVALID_METADATA"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicate        = "DUPLICATE"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeStoreFailure     = "STORE_FAILURE"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// statusFor maps a catalog error onto an HTTP status and error code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, simplecatalog.ErrMissingInput):
		return http.StatusBadRequest, CodeMissingInput
	case errors.Is(err, simplecatalog.ErrInvalidMetadata):
		return http.StatusBadRequest, CodeInvalidMetadata
	case errors.Is(err, simplecatalog.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, simplecatalog.ErrForbiddenKey):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, simplecatalog.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, simplecatalog.ErrDuplicateSlug):
		return http.StatusConflict, CodeDuplicate
	case errors.Is(err, simplecatalog.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	default:
		return http.StatusInternalServerError, CodeStoreFailure
	}
}

// writeError logs err and renders it with the mapped status
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug(msg, "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeErrorCode(w, r, status, code, err.Error())
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Cache-Control", "no-store")
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: code, Message: message})
}
