// Package cache implements a TTL response cache over a pluggable
// key/value store.
package cache

import "context"

// Store is the minimal key/value surface the cache is built on. Values
// are opaque bytes; the cache layers its own envelope and expiry
// semantics on top, so a Store needs no TTL support of its own.
type Store interface {
	// Get returns the value for key, and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the value for key, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all stored keys beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
