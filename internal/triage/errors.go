package triage

import "errors"

// Pipeline node failures. Each node wraps its errors with its own sentinel
// so the failing stage is identifiable from the error chain.
var (
	ErrIngestFailed   = errors.New("ingest failed")
	ErrClassifyFailed = errors.New("classify failed")
	ErrVerifyFailed   = errors.New("verify failed")
	ErrRespondFailed  = errors.New("respond failed")
	ErrFinalizeFailed = errors.New("finalize failed")
)
