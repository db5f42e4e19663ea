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


package memstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/poiesic/memstream/ai"
	"github.com/poiesic/memstream/ai/openai"
	"github.com/poiesic/memstream/config"
	"github.com/poiesic/memstream/daemon"
	"github.com/poiesic/memstream/extract"
	"github.com/poiesic/memstream/index"
	"github.com/poiesic/memstream/index/chromem"
	"github.com/poiesic/memstream/judge"
	"github.com/poiesic/memstream/storage"
	"github.com/poiesic/memstream/storage/badger"
)

// Pipeline wires the capture stages over shared storage: the extractor
// stages transcript chunks, the judge triages them into the durable queue,
// and the drainer moves queued entries into the vector index.
type Pipeline struct {
	cfg        *config.Config
	backend    *badger.Backend
	sources    storage.SourceRepository
	chunks     storage.ChunkRepository
	queue      storage.QueueRepository
	indexState storage.IndexStateRepository
	store      index.VectorStore

	extractor *extract.Extractor
	judge     *judge.Judge
	drainer   *index.Drainer
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	aiConfig  *ai.Config
	indexPath string
	store     index.VectorStore
	inMemory  bool
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) PipelineOption {
	return func(o *pipelineOptions) {
		o.aiConfig = cfg
	}
}

// WithIndexPath sets the vector index directory.
// Defaults to an "index" directory under the data dir.
func WithIndexPath(path string) PipelineOption {
	return func(o *pipelineOptions) {
		o.indexPath = path
	}
}

// WithVectorStore injects a vector store, replacing the default
// chromem-backed one. Used by tests.
func WithVectorStore(store index.VectorStore) PipelineOption {
	return func(o *pipelineOptions) {
		o.store = store
	}
}

// WithInMemoryStorage keeps all pipeline state in memory. Used by tests.
func WithInMemoryStorage() PipelineOption {
	return func(o *pipelineOptions) {
		o.inMemory = true
	}
}

// NewPipeline builds a Pipeline from the configuration.
func NewPipeline(cfg *config.Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &pipelineOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := slog.Default()

	backend, err := badger.OpenBackend(cfg.DataDir, options.inMemory)
	if err != nil {
		return nil, err
	}

	sources, err := badger.NewSourceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	queue, err := badger.NewQueueRepository(backend)
	if err != nil {
		chunks.Close()
		backend.Close()
		return nil, err
	}

	indexState, err := badger.NewIndexStateRepository(backend)
	if err != nil {
		queue.Close()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	store := options.store
	if store == nil {
		embedder, err := openai.NewEmbedder(options.aiConfig)
		if err != nil {
			queue.Close()
			chunks.Close()
			backend.Close()
			return nil, err
		}

		indexPath := options.indexPath
		if indexPath == "" {
			indexPath = filepath.Join(cfg.DataDir, "index")
		}
		store, err = chromem.NewStore(indexPath, embedder, logger)
		if err != nil {
			queue.Close()
			chunks.Close()
			backend.Close()
			return nil, err
		}
	}

	classifier := judge.NewLexiconClassifier(judge.DefaultLexicon(), cfg.ShortMessageLength)
	j, err := judge.New(chunks, queue, sources, classifier,
		cfg.ImportanceThreshold, cfg.Provenance, logger)
	if err != nil {
		store.Close()
		queue.Close()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	return &Pipeline{
		cfg:        cfg,
		backend:    backend,
		sources:    sources,
		chunks:     chunks,
		queue:      queue,
		indexState: indexState,
		store:      store,
		extractor:  extract.New(sources, chunks, cfg.TranscriptDir, cfg.MinBatch, cfg.MaxWait, logger),
		judge:      j,
		drainer:    index.New(queue, indexState, store, cfg.DebounceWindow, cfg.MaxIndexBatch, cfg.IndexTimeout, logger),
		logger:     logger,
	}, nil
}

// Run starts all three daemons and blocks until ctx is cancelled.
// The extractor additionally wakes on transcript writes when the
// transcript directory can be watched.
func (p *Pipeline) Run(ctx context.Context) error {
	var wake <-chan struct{}
	watcher, err := extract.NewWatcher(p.cfg.TranscriptDir, p.logger)
	if err != nil {
		p.logger.Warn("transcript watching unavailable, polling only", "error", err)
	} else {
		defer watcher.Close()
		wake = watcher.Changes()
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		daemon.LoopWithWake(ctx, "extractor", p.cfg.ExtractInterval, wake, p.logger, p.ExtractOnce)
	}()
	go func() {
		defer wg.Done()
		daemon.Loop(ctx, "judge", p.cfg.JudgeInterval, p.logger, p.JudgeOnce)
	}()
	go func() {
		defer wg.Done()
		daemon.Loop(ctx, "drainer", p.cfg.DrainInterval, p.logger, func(ctx context.Context) error {
			return p.DrainOnce(ctx, false)
		})
	}()
	wg.Wait()
	return nil
}

// ExtractOnce runs one extraction cycle.
func (p *Pipeline) ExtractOnce(ctx context.Context) error {
	return p.extractor.RunOnce(ctx)
}

// JudgeOnce runs one judge cycle.
func (p *Pipeline) JudgeOnce(ctx context.Context) error {
	return p.judge.RunOnce(ctx)
}

// DrainOnce runs one drain. The debounce window applies unless forced;
// a debounced run is not an error.
func (p *Pipeline) DrainOnce(ctx context.Context, force bool) error {
	err := p.drainer.Run(ctx, force)
	if errors.Is(err, index.ErrDebounced) {
		return nil
	}
	return err
}

// ExportQueue writes the durable queue to w as JSONL and returns the
// number of entries written.
func (p *Pipeline) ExportQueue(ctx context.Context, w io.Writer) (int, error) {
	return p.queue.Export(ctx, w)
}

// QueueRepository exposes the durable queue.
func (p *Pipeline) QueueRepository() storage.QueueRepository {
	return p.queue
}

// SourceRepository exposes the source checkpoints.
func (p *Pipeline) SourceRepository() storage.SourceRepository {
	return p.sources
}

// Close shuts the pipeline down. Daemons must have stopped first.
func (p *Pipeline) Close() error {
	p.judge.Close()

	if err := p.store.Close(); err != nil {
		p.logger.Error("error closing vector store", "err", err)
	}
	if err := p.queue.Close(); err != nil {
		p.logger.Error("error closing queue repository", "err", err)
	}
	if err := p.chunks.Close(); err != nil {
		p.logger.Error("error closing chunk repository", "err", err)
	}

	if err := p.backend.Close(); err != nil {
		p.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
