// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
type SourceRepository struct {
	backend *Backend
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) (storage.SourceRepository, error) {
	return &SourceRepository{backend: backend}, nil
}

// Close implements storage.Repository. The backend is shared and closed by
// its owner.
func (r *SourceRepository) Close() error {
	return nil
}

// PutSource inserts or updates a source record.
func (r *SourceRepository) PutSource(ctx context.Context, source *core.Source) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceKey(source.ID)
		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSource retrieves a source by ID.
func (r *SourceRepository) GetSource(ctx context.Context, id core.ID) (*core.Source, error) {
	var source *core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		source, err = readSource(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return source, nil
}

// ListSources retrieves all known sources.
func (r *SourceRepository) ListSources(ctx context.Context) ([]*core.Source, error) {
	var sources []*core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sourcePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				source, err := storage.UnmarshalSource(val)
				if err != nil {
					return err
				}
				sources = append(sources, source)
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
	return sources, nil
}

// AdvanceCheckpoint moves a source's checkpoint forward.
// Rejects any attempt to decrease the offset or record count.
func (r *SourceRepository) AdvanceCheckpoint(ctx context.Context, id core.ID, offset, records int64, extractedAt time.Time) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		source, err := readSource(tx, id)
		if err != nil {
			return err
		}

		if offset < source.Offset || records < source.Records {
			return storage.ErrCheckpointRegression
		}

		source.Offset = offset
		source.Records = records
		source.LastExtractedAt = extractedAt
		source.LastCheckedAt = extractedAt

		if err := tx.Set(makeSourceKey(id), storage.MarshalSource(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// TouchSource updates LastCheckedAt without moving the checkpoint.
func (r *SourceRepository) TouchSource(ctx context.Context, id core.ID, checkedAt time.Time) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		source, err := readSource(tx, id)
		if err != nil {
			return err
		}

		source.LastCheckedAt = checkedAt

		if err := tx.Set(makeSourceKey(id), storage.MarshalSource(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func readSource(tx *badger.Txn, id core.ID) (*core.Source, error) {
	item, err := tx.Get(makeSourceKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var source *core.Source
	err = item.Value(func(val []byte) error {
		var uerr error
		source, uerr = storage.UnmarshalSource(val)
		return uerr
	})
	if err != nil {
		return nil, err
	}
	return source, nil
}
