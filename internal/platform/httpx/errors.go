// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to enveloped HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Fail(w, http.StatusConflict, "Duplicate entry", err.Error())
	case errors.Is(err, ErrInvalidState):
		Fail(w, http.StatusConflict, "Invalid state", err.Error())
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
