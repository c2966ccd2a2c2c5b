package verify

import "errors"

// Sentinel errors for verification operations.
var (
	ErrVerificationFailed = errors.New("verification request failed")
	ErrNotConfigured      = errors.New("verification endpoint not configured")
)
