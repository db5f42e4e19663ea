package storage

import (
	"context"
	"io"
	"time"

	"github.com/poiesic/memstream/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// SourceRepository tracks monitored transcript sources and their checkpoints.
type SourceRepository interface {
	Repository

	// PutSource inserts or updates a source record.
	// New sources start with a zero checkpoint.
	PutSource(ctx context.Context, source *core.Source) error

	// GetSource retrieves a source by ID.
	// Returns ErrNotFound if the source doesn't exist.
	GetSource(ctx context.Context, id core.ID) (*core.Source, error)

	// ListSources retrieves all known sources.
	ListSources(ctx context.Context) ([]*core.Source, error)

	// AdvanceCheckpoint moves a source's checkpoint forward to the given
	// byte offset and record count and stamps the extraction time.
	// Returns ErrCheckpointRegression if either value would decrease:
	// checkpoints are monotonically non-decreasing.
	AdvanceCheckpoint(ctx context.Context, id core.ID, offset, records int64, extractedAt time.Time) error

	// TouchSource updates a source's LastCheckedAt without moving the
	// checkpoint.
	TouchSource(ctx context.Context, id core.ID, checkedAt time.Time) error
}

// ChunkRepository is the staging area between the extractor and the judge.
type ChunkRepository interface {
	Repository

	// StageChunk durably writes a chunk to the staging area.
	StageChunk(ctx context.Context, chunk *core.Chunk) error

	// ListChunks retrieves all staged chunks in staging order.
	ListChunks(ctx context.Context) ([]*core.Chunk, error)

	// DeleteChunk removes a judged chunk. This is the judge's commit
	// point: it must only be called after every record in the chunk has
	// been judged. Returns ErrNotFound if the chunk doesn't exist.
	DeleteChunk(ctx context.Context, id string) error
}

// QueueRepository is the durable, deduplicating queue of judged entries.
// It is an append-only log: entries are never rewritten, and consumption is
// tracked with an explicit consumer offset.
type QueueRepository interface {
	Repository

	// Append adds entries to the queue. An entry whose content hash has
	// already been appended is silently dropped. Returns the number of
	// entries actually appended.
	Append(ctx context.Context, entries ...*core.JudgedEntry) (int, error)

	// HasHash reports whether a content hash has ever been appended.
	HasHash(ctx context.Context, hash string) (bool, error)

	// ReadFrom retrieves up to limit items with sequence numbers strictly
	// greater than afterSeq, in sequence order.
	ReadFrom(ctx context.Context, afterSeq uint64, limit int) ([]*core.QueueItem, error)

	// Export writes every queue entry to w as JSONL, one entry per line,
	// and returns the number of entries written.
	Export(ctx context.Context, w io.Writer) (int, error)
}

// IndexStateRepository persists the drainer's debounce and consumption marker.
type IndexStateRepository interface {
	Repository

	// SaveIndexState persists the index state.
	SaveIndexState(ctx context.Context, state *core.IndexState) error

	// LoadIndexState retrieves the index state.
	// Returns nil, nil if no state has been saved yet.
	LoadIndexState(ctx context.Context) (*core.IndexState, error)
}
