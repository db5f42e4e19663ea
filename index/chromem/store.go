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


package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/poiesic/memstream/ai"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/index"
)

const (
	collectionName  = "memstream"
	embedAttempts   = 3
	embedRetryDelay = 500 * time.Millisecond
)

// Store implements index.VectorStore on chromem-go, a pure Go embedded
// vector database. Documents are keyed by content hash, so re-indexing an
// entry overwrites its own document rather than duplicating it.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   ai.Embedder
	logger     *slog.Logger
}

var _ index.VectorStore = (*Store)(nil)

// NewStore opens a persistent chromem database at path. Embeddings come
// from the given embedder; embedding calls are retried with backoff
// before an entry is given up on.
func NewStore(path string, embedder ai.Embedder, logger *slog.Logger) (index.VectorStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector db: %w", err)
	}

	store := &Store{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, store.embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}
	store.collection = collection

	return store, nil
}

// embed adapts the ai.Embedder to chromem's embedding function, with
// retries for transient embedding-service failures.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := index.RetryWithBackoff(ctx, func() error {
		var eerr error
		vector, eerr = s.embedder.EmbedText(ctx, text)
		return eerr
	}, embedAttempts, embedRetryDelay)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// Index implements index.VectorStore.
func (s *Store) Index(ctx context.Context, entry *core.JudgedEntry) error {
	doc := chromem.Document{
		ID:      entry.ContentHash,
		Content: entry.Text,
		Metadata: map[string]string{
			"category":   string(entry.Category),
			"source":     entry.Source,
			"importance": fmt.Sprintf("%d", entry.Importance),
			"timestamp":  entry.Timestamp.UTC().Format(time.RFC3339),
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("adding document %s: %w", entry.ContentHash, err)
	}
	return nil
}

// Has implements index.VectorStore.
func (s *Store) Has(ctx context.Context, hash string) (bool, error) {
	if _, err := s.collection.GetByID(ctx, hash); err != nil {
		// chromem reports a missing document as an error
		return false, nil
	}
	return true, nil
}

// Close implements index.VectorStore. The persistent database flushes on
// every write, so there is nothing buffered to release.
func (s *Store) Close() error {
	return nil
}
