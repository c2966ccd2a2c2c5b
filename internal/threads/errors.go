package threads

import (
	"errors"
	"net/http"
)

// Domain errors for thread operations.
var (
	ErrNotFound          = errors.New("thread not found")
	ErrDuplicate         = errors.New("thread already exists for external id")
	ErrInvalidState      = errors.New("invalid thread state")
	ErrInvalidTransition = errors.New("manual transition not permitted")
	ErrVersionConflict   = errors.New("thread version conflict")
)

// MapHTTPStatus maps thread domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrVersionConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidTransition) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
