package messages

import (
	"errors"
	"net/http"
)

// Domain errors for message operations.
var (
	ErrNotFound      = errors.New("message not found")
	ErrThreadMissing = errors.New("message thread does not exist")
	ErrInvalidRole   = errors.New("invalid message role")
)

// MapHTTPStatus maps message domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrThreadMissing) || errors.Is(err, ErrInvalidRole) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
