package domain

import "errors"

// Domain errors are checked with errors.Is by the HTTP layer to pick a status code.
var (
	// ErrValidation wraps every rejected record; the wrapping error carries the reason.
	ErrValidation = errors.New("transferencias: invalid transfer record")

	// ErrMissingOrigin is returned when lojaOrigem is empty.
	ErrMissingOrigin = errors.New("transferencias: origin store is required")

	// ErrMissingDestination is returned when lojaDestino is empty.
	ErrMissingDestination = errors.New("transferencias: destination store is required")

	// ErrSameStore is returned when origin and destination name the same store.
	ErrSameStore = errors.New("transferencias: origin and destination must differ")

	// ErrNotFound is returned when no stored record matches an id.
	ErrNotFound = errors.New("transferencias: transfer not found")

	// ErrAlreadyRunning is returned when Start() is called on a running server.
	ErrAlreadyRunning = errors.New("transferencias: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped server.
	ErrNotRunning = errors.New("transferencias: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("transferencias: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("transferencias: invalid configuration")
)
