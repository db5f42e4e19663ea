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


package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/storage"
)

// Drainer moves judged entries from the durable queue into the vector
// store.
//
// Each run reads unconsumed entries past the consumer offset, capped at the
// batch limit, and indexes them one at a time under a per-entry timeout.
// The offset advances only past the contiguous prefix of successes; a
// failed entry stays queued and is retried next run, where hash idempotence
// makes any re-index of later entries a no-op.
type Drainer struct {
	queue        storage.QueueRepository
	state        storage.IndexStateRepository
	store        VectorStore
	debounce     time.Duration
	maxBatch     int
	entryTimeout time.Duration
	logger       *slog.Logger
}

// New creates a Drainer.
func New(
	queue storage.QueueRepository,
	state storage.IndexStateRepository,
	store VectorStore,
	debounce time.Duration,
	maxBatch int,
	entryTimeout time.Duration,
	logger *slog.Logger,
) *Drainer {
	return &Drainer{
		queue:        queue,
		state:        state,
		store:        store,
		debounce:     debounce,
		maxBatch:     maxBatch,
		entryTimeout: entryTimeout,
		logger:       logger,
	}
}

// Run performs one drain. A run starting less than the debounce window
// after the previous run returns ErrDebounced; force bypasses the window.
func (d *Drainer) Run(ctx context.Context, force bool) error {
	state, err := d.state.LoadIndexState(ctx)
	if err != nil {
		return fmt.Errorf("loading index state: %w", err)
	}
	if state == nil {
		state = &core.IndexState{}
	}

	if !force && !state.LastRunAt.IsZero() && time.Since(state.LastRunAt) < d.debounce {
		return ErrDebounced
	}

	items, err := d.queue.ReadFrom(ctx, state.LastIndexedSeq, d.maxBatch)
	if err != nil {
		return fmt.Errorf("reading queue: %w", err)
	}

	indexed := 0
	consumed := state.LastIndexedSeq
	prefixIntact := true

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		if err := d.indexEntry(ctx, &item.Entry); err != nil {
			// The entry stays queued for the next run
			d.logger.Warn("entry left queued",
				"seq", item.Seq, "hash", item.Entry.ContentHash, "error", err)
			prefixIntact = false
			continue
		}

		indexed++
		if prefixIntact {
			consumed = item.Seq
		}
	}

	state.LastIndexedSeq = consumed
	state.LastRunAt = time.Now().UTC()
	if err := d.state.SaveIndexState(ctx, state); err != nil {
		return fmt.Errorf("saving index state: %w", err)
	}

	if len(items) > 0 {
		d.logger.Info("drained queue",
			"read", len(items), "indexed", indexed, "consumed_seq", consumed)
	}
	return nil
}

// indexEntry indexes one entry under the per-entry timeout. Entries whose
// hash is already indexed succeed without touching the store.
func (d *Drainer) indexEntry(ctx context.Context, entry *core.JudgedEntry) error {
	entryCtx, cancel := context.WithTimeout(ctx, d.entryTimeout)
	defer cancel()

	known, err := d.store.Has(entryCtx, entry.ContentHash)
	if err != nil {
		return fmt.Errorf("checking hash: %w", err)
	}
	if known {
		return nil
	}

	if err := d.store.Index(entryCtx, entry); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("indexing timed out after %s: %w", d.entryTimeout, err)
		}
		return err
	}
	return nil
}
