package domain

import "errors"

// Sentinel errors shared across the engine.
var (
	// ErrNotFound is returned by driver queries that match no document, and
	// by session lookups that miss with no fallback value.
	ErrNotFound = errors.New("document not found")

	// ErrUnknownDriver is returned when a session names a driver that is not
	// present in the registry. This is a caller error, not a storage failure.
	ErrUnknownDriver = errors.New("unknown driver")

	// ErrMalformedDocument is returned when a driver hands back a document
	// missing its state tree or id. Drivers are not allowed to return partial
	// documents, so this indicates a contract violation.
	ErrMalformedDocument = errors.New("malformed document")
)
