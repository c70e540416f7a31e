// Package store provides the console's persistent local storage.
package store

import (
	"context"
)

// Repository is a string key/value store that survives console restarts.
type Repository interface {
	// GetItem returns the value stored under key. ok is false when the key is absent.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)

	// SetItem creates or replaces the value stored under key.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItems deletes the given keys and reports how many existed.
	RemoveItems(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying storage.
	Close() error
}
