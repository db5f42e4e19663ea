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


package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/storage"
	"github.com/poiesic/memstream/transcript"
)

// Extractor surfaces new transcript content as staged chunks.
//
// Each cycle it discovers transcript files, reads each source from its
// checkpoint, and stages one chunk per source with new content. The
// checkpoint advances only after the chunk is durably staged, so a crash
// between the two re-extracts the same records rather than losing them.
type Extractor struct {
	sources       storage.SourceRepository
	chunks        storage.ChunkRepository
	transcriptDir string
	minBatch      int
	maxWait       time.Duration
	logger        *slog.Logger
}

// New creates an Extractor monitoring transcriptDir. Extraction for a
// source triggers when it has at least minBatch new records, or any new
// records older than maxWait.
func New(
	sources storage.SourceRepository,
	chunks storage.ChunkRepository,
	transcriptDir string,
	minBatch int,
	maxWait time.Duration,
	logger *slog.Logger,
) *Extractor {
	return &Extractor{
		sources:       sources,
		chunks:        chunks,
		transcriptDir: transcriptDir,
		minBatch:      minBatch,
		maxWait:       maxWait,
		logger:        logger,
	}
}

// RunOnce performs a single discover-and-extract cycle.
// Per-source failures are logged and skipped; the cycle continues.
func (e *Extractor) RunOnce(ctx context.Context) error {
	if err := e.discover(ctx); err != nil {
		return err
	}

	sources, err := e.sources.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}

	for _, source := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.extractSource(ctx, source); err != nil {
			// Transient: retried next cycle
			e.logger.Warn("skipping source this cycle",
				"path", source.Path, "error", err)
			if terr := e.sources.TouchSource(ctx, source.ID, time.Now().UTC()); terr != nil {
				e.logger.Error("failed to touch source",
					"path", source.Path, "error", terr)
			}
		}
	}
	return nil
}

// discover registers transcript files not yet tracked as sources.
func (e *Extractor) discover(ctx context.Context) error {
	paths, err := filepath.Glob(filepath.Join(e.transcriptDir, "*.jsonl"))
	if err != nil {
		return fmt.Errorf("scanning transcript dir: %w", err)
	}

	for _, path := range paths {
		id := core.SourceIDFromPath(path)
		_, err := e.sources.GetSource(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		source := &core.Source{
			ID:            id,
			Path:          path,
			LastCheckedAt: time.Now().UTC(),
		}
		if err := e.sources.PutSource(ctx, source); err != nil {
			return fmt.Errorf("registering source %s: %w", path, err)
		}
		e.logger.Info("discovered source", "path", path, "source_id", id)
	}
	return nil
}

// extractSource reads one source from its checkpoint and, if the batch
// gate passes, stages a chunk and advances the checkpoint.
func (e *Extractor) extractSource(ctx context.Context, source *core.Source) error {
	now := time.Now().UTC()

	count, err := transcript.CountNew(source.Path, source.Offset)
	if err != nil {
		return fmt.Errorf("counting new records: %w", err)
	}
	if count == 0 {
		return e.sources.TouchSource(ctx, source.ID, now)
	}

	// Gate: enough records, or any records waiting too long
	if count < e.minBatch && now.Sub(source.LastExtractedAt) < e.maxWait {
		return e.sources.TouchSource(ctx, source.ID, now)
	}

	res, err := transcript.ReadNew(source.Path, source.Offset, e.logger)
	if err != nil {
		return fmt.Errorf("reading new records: %w", err)
	}
	if res.Skipped > 0 {
		e.logger.Warn("skipped malformed lines",
			"path", source.Path, "skipped", res.Skipped)
	}

	if len(res.Records) == 0 {
		// Only malformed lines: move past them without staging
		if res.NewOffset > source.Offset {
			return e.sources.AdvanceCheckpoint(ctx, source.ID, res.NewOffset, source.Records, now)
		}
		return e.sources.TouchSource(ctx, source.ID, now)
	}

	chunk := &core.Chunk{
		ID:        uuid.NewString(),
		SourceID:  source.ID,
		Records:   res.Records,
		CreatedAt: now,
	}
	if err := e.chunks.StageChunk(ctx, chunk); err != nil {
		return fmt.Errorf("staging chunk: %w", err)
	}

	// The chunk is durable; now the checkpoint may move
	records := source.Records + int64(len(res.Records))
	if err := e.sources.AdvanceCheckpoint(ctx, source.ID, res.NewOffset, records, now); err != nil {
		return fmt.Errorf("advancing checkpoint: %w", err)
	}

	e.logger.Info("extracted chunk",
		"path", source.Path, "chunk_id", chunk.ID,
		"records", len(res.Records), "offset", res.NewOffset)
	return nil
}
