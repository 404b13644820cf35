// Package apperrors defines the error taxonomy shared by the reporting core
// and the HTTP boundary. Handlers map these with errors.Is onto status codes;
// the core never recovers or retries them.
package apperrors

import "errors"

var (
	// ErrInvalidInput indicates malformed request input (bad table identity,
	// empty search, inverted date range). Rejected before any query compiles.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a well-formed request whose target has no data:
	// unknown user id, segment with zero users, a table without week columns.
	ErrNotFound = errors.New("not found")

	// ErrSchemaIncompatible indicates a required logical field has no matching
	// physical column, meaning the table cannot serve the reporting schema.
	ErrSchemaIncompatible = errors.New("table incompatible with reporting schema")

	// ErrStoreUnavailable indicates the backing store failed to execute a
	// query. Surfaced as-is; this layer performs no retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)
