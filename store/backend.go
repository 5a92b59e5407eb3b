// Package store persists the player's identity and point balance between runs
// of the clicker client. LocalState holds the domain rules; the bytes live in
// a Backend (a YAML file, process memory, or redis).
package store

import (
	"context"
	"errors"
)

// ErrBackendClosed is returned by backends used after Close.
var ErrBackendClosed = errors.New("store backend is closed")

// Backend is a string key/value store. Implementations must be safe for
// concurrent use and every call must be durable by the time it returns (as
// durable as the backend gets).
type Backend interface {
	// Get returns the value stored under key.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - key: The entry name
	//
	// Returns:
	//   - The value and true if present, "" and false otherwise
	//   - An error if the backend could not be read
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error

	// SetIfAbsent stores value only when key has no value yet. The check and
	// the write are atomic with respect to other callers of the same backend.
	//
	// Returns:
	//   - true if value was stored, false if key already had a value
	//   - An error if the backend could not be read or written
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)

	// Close releases backend resources. It is safe to call multiple times.
	Close() error
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
