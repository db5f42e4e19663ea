package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/storage"
)

// IndexStateRepository implements storage.IndexStateRepository for BadgerDB.
type IndexStateRepository struct {
	backend *Backend
}

var _ storage.IndexStateRepository = (*IndexStateRepository)(nil)

// NewIndexStateRepository creates a new IndexStateRepository.
func NewIndexStateRepository(backend *Backend) (storage.IndexStateRepository, error) {
	return &IndexStateRepository{backend: backend}, nil
}

// Close implements storage.Repository. The backend is shared and closed by
// its owner.
func (r *IndexStateRepository) Close() error {
	return nil
}

// SaveIndexState persists the drainer's state.
func (r *IndexStateRepository) SaveIndexState(ctx context.Context, state *core.IndexState) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeIndexStateKey(), storage.MarshalIndexState(state)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadIndexState retrieves the drainer's state, or nil if none was saved.
func (r *IndexStateRepository) LoadIndexState(ctx context.Context) (*core.IndexState, error) {
	var state *core.IndexState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeIndexStateKey())
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var uerr error
			state, uerr = storage.UnmarshalIndexState(val)
			return uerr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return state, nil
}
