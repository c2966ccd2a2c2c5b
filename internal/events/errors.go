package events

import (
	"errors"
	"net/http"
)

// Domain errors for event operations.
var ErrNotFound = errors.New("event not found")

// MapHTTPStatus maps event domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
