// Package memory provides key/value stores for persisted agent state.
// Keys are /-separated relative paths and values are raw bytes, so a
// store maps directly onto a directory of files.
package memory

import "context"

// Store reads and writes entries by key.
// Implementations must be safe for concurrent use.
type Store interface {
	// List returns all keys in the store in lexical order.
	List(ctx context.Context) ([]string, error)
	// Load retrieves entries for the specified keys in request order.
	// Returns ErrKeyNotFound if any key is missing.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save persists entries, creating or overwriting as needed. Each entry
	// is replaced atomically.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
