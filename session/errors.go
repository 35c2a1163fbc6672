package session

import "errors"

// Sentinel errors for store operations. These are part of the public API
// and should be checked with errors.Is().
//
// ErrConnection and ErrPoolExhausted are transient: callers may retry
// with backoff. Every other kind propagates unchanged and the caller
// decides recovery.
var (
	// ErrNotFound indicates the requested session or event does not exist.
	// Read paths return an explicit nil instead; this error surfaces only
	// from mutating operations that require the row to exist.
	ErrNotFound = errors.New("session not found")

	// ErrDuplicateKey indicates a primary-key collision on create or append.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrSchemaMismatch indicates the backend's existing layout matches
	// neither known schema version. Fatal for that backend instance.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrConnection indicates a backend connection failure.
	ErrConnection = errors.New("connection failure")

	// ErrPoolExhausted indicates no pooled connection became available
	// within the configured acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrSerialization indicates an event payload could not be encoded or
	// decoded. Fatal for that single event only.
	ErrSerialization = errors.New("serialization failure")

	// ErrConstraint indicates a foreign-key or cascade violation, e.g.
	// appending to a session that is being deleted concurrently.
	ErrConstraint = errors.New("constraint violation")

	// ErrInvalidKey indicates an incomplete session key: application name,
	// user id and session id are all required.
	ErrInvalidKey = errors.New("invalid session key")
)
