// Package store provides data persistence interfaces and implementations.
package store

import "context"

// Keys for the persisted session entries. The session controller is
// the sole writer for all three; other components only read.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyActive       = "active"
)

// TokenStore defines the interface for persisting session credentials
// and the "previously authenticated on this device" flag.
type TokenStore interface {
	// Get retrieves the value for a key. A missing key returns an
	// empty string and no error.
	Get(ctx context.Context, key string) (string, error)

	// Set writes or replaces the value for a key.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Purge removes all of the given keys in one transaction.
	Purge(ctx context.Context, keys ...string) error

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying database.
	Close() error
}
