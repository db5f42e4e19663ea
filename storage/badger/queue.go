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
	"encoding/json"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/storage"
)

// QueueRepository implements storage.QueueRepository for BadgerDB.
//
// The queue is an append-only log keyed by a monotonic sequence number.
// A secondary index maps content hashes to sequence numbers so duplicate
// entries can be dropped at append time. Entries are never deleted;
// consumption is tracked externally via IndexState.
type QueueRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.QueueRepository = (*QueueRepository)(nil)

// NewQueueRepository creates a new QueueRepository.
func NewQueueRepository(backend *Backend) (storage.QueueRepository, error) {
	seq, err := backend.GetSequence(queueSeq)
	if err != nil {
		return nil, err
	}
	return &QueueRepository{backend: backend, seq: seq}, nil
}

// Close releases the append sequence.
func (r *QueueRepository) Close() error {
	return r.seq.Release()
}

// nextSeq returns the next sequence number, skipping zero. Sequence
// numbers start at one so a consumer offset of zero means "nothing
// consumed yet".
func (r *QueueRepository) nextSeq() (uint64, error) {
	seq, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	if seq == 0 {
		return r.seq.Next()
	}
	return seq, nil
}

// Append adds entries to the queue, dropping any whose content hash has
// already been appended. Returns the number of entries actually appended.
func (r *QueueRepository) Append(ctx context.Context, entries ...*core.JudgedEntry) (int, error) {
	appended := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			if err := core.ValidateJudgedEntry(entry); err != nil {
				return err
			}

			hashKey := makeQueueHashKey(entry.ContentHash)
			_, err := tx.Get(hashKey)
			if err == nil {
				// Duplicate, drop it.
				continue
			}
			if err != badger.ErrKeyNotFound {
				return err
			}

			seq, err := r.nextSeq()
			if err != nil {
				return err
			}

			if err := tx.Set(makeQueueKey(seq), storage.MarshalJudgedEntry(entry)); err != nil {
				return err
			}
			if err := tx.Set(hashKey, makeQueueKey(seq)); err != nil {
				return err
			}
			appended++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return appended, nil
}

// HasHash reports whether a content hash has ever been appended.
func (r *QueueRepository) HasHash(ctx context.Context, hash string) (bool, error) {
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeQueueHashKey(hash))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	if err != nil {
		return false, err
	}
	return found, nil
}

// ReadFrom retrieves up to limit items with sequence numbers strictly
// greater than afterSeq, in sequence order.
func (r *QueueRepository) ReadFrom(ctx context.Context, afterSeq uint64, limit int) ([]*core.QueueItem, error) {
	var items []*core.QueueItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queuePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeQueueKey(afterSeq + 1)); iter.Valid(); iter.Next() {
			if limit > 0 && len(items) >= limit {
				break
			}

			item := iter.Item()
			seq := queueKeySeq(item.Key())
			err := item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalJudgedEntry(val)
				if err != nil {
					return err
				}
				items = append(items, &core.QueueItem{Seq: seq, Entry: *entry})
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
	return items, nil
}

// Export writes every queue entry to w as JSONL, one entry per line.
func (r *QueueRepository) Export(ctx context.Context, w io.Writer) (int, error) {
	written := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queuePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalJudgedEntry(val)
				if err != nil {
					return err
				}
				line, err := json.Marshal(entry)
				if err != nil {
					return err
				}
				if _, err := w.Write(append(line, '\n')); err != nil {
					return err
				}
				written++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return written, nil
}
