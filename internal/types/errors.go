package types

import "errors"

// Error taxonomy shared by handlers and middleware. Callers wrap these with
// fmt.Errorf("...: %w", ...) and classify them with errors.Is.
//
// A delete that matches no row (unknown id, or a marker owned by someone
// else) is deliberately NOT an error: it is reported as a successful no-op.
var (
	// ErrUnauthorized: a mutating operation without an authenticated user.
	ErrUnauthorized = errors.New("authentication required")

	// ErrMalformedRequest: the payload or path parameter has the wrong shape.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrStorageUnavailable: the backing store failed. Surfaced to clients
	// as a generic server error.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
