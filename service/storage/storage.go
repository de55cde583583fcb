package storage

import "context"

// Store is the durable key-value primitive the tracker persists through.
// Implementations must treat values as opaque strings; the tracker owns
// the layout of everything under its key space.
type Store interface {
	// Get returns the value for key. The second return value reports
	// whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value for key, overwriting any existing value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
