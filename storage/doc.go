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


// Package storage provides the storage abstraction layer for memstream.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline logic. The repositories are the only
// coordination channel between the extractor, judge and drainer daemons:
// there is no shared memory between them.
//
// # Repositories
//
//   - SourceRepository: per-source read checkpoints, monotonically advancing
//   - ChunkRepository: the staging area between extractor and judge
//   - QueueRepository: the durable, hash-deduplicating append-only queue
//   - IndexStateRepository: drain debounce and consumption marker
//
// # Constructor Return Type Pattern
//
// Public constructors return interface types to enforce abstraction and
// enable alternative backends:
//
//	repo, err := badger.NewSourceRepository(backend)  // returns storage.SourceRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Durability
//
// All writes go through BadgerDB transactions, so readers never observe a
// partially written chunk or queue entry. The judge's chunk deletion and the
// drainer's offset advance are each a single transaction and act as the
// commit points of their stages; a crash before either leaves work in place
// for safe, idempotent reprocessing.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines.
package storage
