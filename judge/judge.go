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


package judge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/storage"
)

const defaultPoolSize = 4

// Judge triages staged chunks into the durable queue.
//
// A run scans the staging area, groups chunks by source, and judges each
// source's chunks in staging order. Sources are judged in parallel; within
// a source, chunks and their records stay in append order. A chunk is
// deleted only after every record in it has been judged and the qualifying
// entries durably appended, so a crash mid-chunk leaves it staged for safe
// reprocessing.
type Judge struct {
	chunks     storage.ChunkRepository
	queue      storage.QueueRepository
	sources    storage.SourceRepository
	classifier Classifier
	pool       *ants.Pool
	threshold  int
	provenance string
	logger     *slog.Logger
}

// New creates a Judge. threshold is the minimum importance for an entry to
// persist; provenance tags each entry's source field.
func New(
	chunks storage.ChunkRepository,
	queue storage.QueueRepository,
	sources storage.SourceRepository,
	classifier Classifier,
	threshold int,
	provenance string,
	logger *slog.Logger,
) (*Judge, error) {
	pool, err := ants.NewPool(defaultPoolSize)
	if err != nil {
		return nil, err
	}
	return &Judge{
		chunks:     chunks,
		queue:      queue,
		sources:    sources,
		classifier: classifier,
		pool:       pool,
		threshold:  threshold,
		provenance: provenance,
		logger:     logger,
	}, nil
}

// Close releases the worker pool.
func (j *Judge) Close() error {
	j.pool.Release()
	return nil
}

// RunOnce performs a single scan-and-judge cycle.
func (j *Judge) RunOnce(ctx context.Context) error {
	chunks, err := j.chunks.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("listing staged chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	// Group by source, preserving staging order within each group.
	bySource := make(map[core.ID][]*core.Chunk)
	var order []core.ID
	for _, chunk := range chunks {
		if _, seen := bySource[chunk.SourceID]; !seen {
			order = append(order, chunk.SourceID)
		}
		bySource[chunk.SourceID] = append(bySource[chunk.SourceID], chunk)
	}

	var wg sync.WaitGroup
	for _, sourceID := range order {
		sourceChunks := bySource[sourceID]
		wg.Add(1)
		err := j.pool.Submit(func() {
			defer wg.Done()
			j.judgeSource(ctx, sourceID, sourceChunks)
		})
		if err != nil {
			wg.Done()
			j.logger.Error("failed to submit judge task",
				"source_id", sourceID, "error", err)
		}
	}
	wg.Wait()

	return nil
}

// judgeSource judges one source's chunks in staging order. A failure on
// one chunk stops that source for this cycle; remaining chunks stay
// staged and keep their relative order.
func (j *Judge) judgeSource(ctx context.Context, sourceID core.ID, chunks []*core.Chunk) {
	origin := j.origin(ctx, sourceID)

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}
		if err := j.judgeChunk(ctx, chunk, origin); err != nil {
			j.logger.Error("failed to judge chunk",
				"chunk_id", chunk.ID, "source_id", sourceID, "error", err)
			return
		}
	}
}

// judgeChunk judges every record in a chunk, appends the qualifying
// entries, and deletes the chunk. Deletion is the commit point.
func (j *Judge) judgeChunk(ctx context.Context, chunk *core.Chunk, origin string) error {
	var entries []*core.JudgedEntry

	for i := range chunk.Records {
		record := &chunk.Records[i]
		entry, err := j.judgeRecord(record, origin)
		if err != nil {
			// One bad record never aborts the chunk.
			j.logger.Warn("skipping record",
				"chunk_id", chunk.ID, "source", origin,
				"timestamp", record.Timestamp, "error", err)
			continue
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}

	if len(entries) > 0 {
		appended, err := j.queue.Append(ctx, entries...)
		if err != nil {
			return fmt.Errorf("appending judged entries: %w", err)
		}
		j.logger.Info("judged chunk",
			"chunk_id", chunk.ID, "records", len(chunk.Records),
			"qualified", len(entries), "appended", appended)
	}

	if err := j.chunks.DeleteChunk(ctx, chunk.ID); err != nil {
		return fmt.Errorf("deleting judged chunk: %w", err)
	}
	return nil
}

// judgeRecord classifies one record. Returns nil if the record is
// discarded or falls below the importance threshold.
func (j *Judge) judgeRecord(record *core.MessageRecord, origin string) (*core.JudgedEntry, error) {
	if err := core.ValidateMessageRecord(record); err != nil {
		return nil, err
	}

	verdict, ok := j.classifier.Classify(record.Text)
	if !ok {
		return nil, nil
	}
	if verdict.Importance < j.threshold {
		return nil, nil
	}

	return &core.JudgedEntry{
		Timestamp:   record.Timestamp,
		Category:    verdict.Category,
		Importance:  verdict.Importance,
		Text:        record.Text,
		ContentHash: core.ContentHash(record.Text),
		Source:      origin,
	}, nil
}

// origin builds the provenance tag for a source, preferring the source's
// path over its numeric id.
func (j *Judge) origin(ctx context.Context, sourceID core.ID) string {
	source, err := j.sources.GetSource(ctx, sourceID)
	if err != nil || source.Path == "" {
		return fmt.Sprintf("%s:%d", j.provenance, sourceID)
	}
	return fmt.Sprintf("%s:%s", j.provenance, source.Path)
}
