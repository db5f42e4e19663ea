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

import "github.com/poiesic/memstream/storage"

// MemoryRepositories bundles in-memory repositories for testing.
// Caller must call Close when done.
type MemoryRepositories struct {
	Sources    storage.SourceRepository
	Chunks     storage.ChunkRepository
	Queue      storage.QueueRepository
	IndexState storage.IndexStateRepository

	backend *Backend
}

// Close closes all repositories and the shared backend.
func (m *MemoryRepositories) Close() error {
	m.Sources.Close()
	m.Chunks.Close()
	m.Queue.Close()
	m.IndexState.Close()
	return m.backend.Close()
}

// NewMemoryRepositories creates in-memory repositories for testing.
func NewMemoryRepositories() (*MemoryRepositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	sources, err := NewSourceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	queue, err := NewQueueRepository(backend)
	if err != nil {
		chunks.Close()
		backend.Close()
		return nil, err
	}

	indexState, err := NewIndexStateRepository(backend)
	if err != nil {
		queue.Close()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryRepositories{
		Sources:    sources,
		Chunks:     chunks,
		Queue:      queue,
		IndexState: indexState,
		backend:    backend,
	}, nil
}
