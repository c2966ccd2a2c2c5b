package classify

import "errors"

// Sentinel errors for classification operations.
var (
	ErrNotConfigured = errors.New("classifier not configured")
	ErrInvalidMode   = errors.New("unknown classifier mode")
)
