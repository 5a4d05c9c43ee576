// Package store provides the key-value persistence layer for plan requests.
// Production deployments use the Redis-backed store; local development can run
// against the in-memory store.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the key is absent or its record has expired.
var ErrNotFound = errors.New("record not found")

// Store is a durable map from request ID to a serialized plan record with
// per-key expiration. Values are opaque; callers own serialization.
type Store interface {
	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes the record and resets its TTL. Every write refreshes the
	// retention window; reads do not.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases any underlying connections.
	Close() error
}
