package apperr

import "errors"

// Failure categories surfaced by the mirror pipeline. Wrapped errors are
// matched with errors.Is, never by string.
var (
	ErrConfig     = errors.New("configuration error")
	ErrAccess     = errors.New("access error")
	ErrExtraction = errors.New("extraction error")
	ErrRemote     = errors.New("remote service error")
)
