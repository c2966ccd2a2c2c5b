package macros

import (
	"errors"
	"net/http"
)

// Domain errors for macro operations.
var (
	ErrNotFound      = errors.New("macro not found")
	ErrDuplicate     = errors.New("macro name already exists")
	ErrInvalidIntent = errors.New("macro intent is not a known intent")
)

// MapHTTPStatus maps macro domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidIntent) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
