package index

import (
	"context"

	"github.com/poiesic/memstream/core"
)

// VectorStore is the searchable destination for judged entries.
// Indexing must be idempotent keyed by the entry's content hash: indexing
// the same hash twice leaves one document.
type VectorStore interface {
	// Index adds an entry to the store with its text, category and source.
	Index(ctx context.Context, entry *core.JudgedEntry) error

	// Has reports whether a content hash is already indexed.
	Has(ctx context.Context, hash string) (bool, error)

	// Close releases store resources.
	Close() error
}
