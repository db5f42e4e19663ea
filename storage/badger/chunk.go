package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (storage.ChunkRepository, error) {
	seq, err := backend.GetSequence(chunkSeq)
	if err != nil {
		return nil, err
	}
	return &ChunkRepository{backend: backend, seq: seq}, nil
}

// Close releases the staging sequence.
func (r *ChunkRepository) Close() error {
	return r.seq.Release()
}

// StageChunk durably writes a chunk to the staging area.
// The chunk key carries a staging sequence number, so iteration returns
// chunks in the order they were staged.
func (r *ChunkRepository) StageChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}

	seq, err := r.seq.Next()
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeChunkKey(seq), storage.MarshalChunk(chunk)); err != nil {
			return err
		}
		// Index chunk id → staging key for deletion.
		if err := tx.Set(makeChunkIDKey(chunk.ID), makeChunkKey(seq)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListChunks retrieves all staged chunks in staging order.
func (r *ChunkRepository) ListChunks(ctx context.Context) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				chunks = append(chunks, chunk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteChunk removes a judged chunk and its id index entry.
func (r *ChunkRepository) DeleteChunk(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		idKey := makeChunkIDKey(id)
		item, err := tx.Get(idKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		stagingKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		if err := tx.Delete(stagingKey); err != nil {
			return err
		}
		if err := tx.Delete(idKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
