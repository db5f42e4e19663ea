package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/memstream/core"
	badgerstore "github.com/poiesic/memstream/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore is an in-memory VectorStore with injectable failures.
type mockStore struct {
	mu      sync.Mutex
	docs    map[string]*core.JudgedEntry
	failing map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{
		docs:    make(map[string]*core.JudgedEntry),
		failing: make(map[string]error),
	}
}

func (m *mockStore) Index(ctx context.Context, entry *core.JudgedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, bad := m.failing[entry.ContentHash]; bad {
		return err
	}
	m.docs[entry.ContentHash] = entry
	return nil
}

func (m *mockStore) Has(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, found := m.docs[hash]
	return found, nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func appendEntries(t *testing.T, repos *badgerstore.MemoryRepositories, texts ...string) []*core.JudgedEntry {
	t.Helper()
	var entries []*core.JudgedEntry
	for _, text := range texts {
		entries = append(entries, &core.JudgedEntry{
			Timestamp:   time.Now().UTC(),
			Category:    core.CategoryDecision,
			Importance:  8,
			Text:        text,
			ContentHash: core.ContentHash(text),
			Source:      "judge:/transcripts/session-a.jsonl",
		})
	}
	_, err := repos.Queue.Append(context.Background(), entries...)
	require.NoError(t, err)
	return entries
}

func newTestDrainer(repos *badgerstore.MemoryRepositories, store VectorStore, debounce time.Duration, maxBatch int) *Drainer {
	return New(repos.Queue, repos.IndexState, store, debounce, maxBatch, time.Second,
		slog.New(slog.DiscardHandler))
}

func TestDrainIndexesQueuedEntries(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := newMockStore()
	d := newTestDrainer(repos, store, 5*time.Second, 50)

	appendEntries(t, repos,
		"We decided to drain the queue in batches",
		"Found the cause of the stuck consumer offset",
	)

	require.NoError(t, d.Run(ctx, false))
	assert.Equal(t, 2, store.count())

	state, err := repos.IndexState.LoadIndexState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.False(t, state.LastRunAt.IsZero())

	// The offset consumed everything: a forced re-run indexes nothing new
	require.NoError(t, d.Run(ctx, true))
	assert.Equal(t, 2, store.count())
}

func TestDrainDebounce(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := newMockStore()
	d := newTestDrainer(repos, store, 5*time.Second, 50)

	appendEntries(t, repos, "We decided the debounce window is five seconds")

	// First run proceeds
	require.NoError(t, d.Run(ctx, false))
	assert.Equal(t, 1, store.count())

	// Second run inside the window is suppressed
	appendEntries(t, repos, "Found another entry right after the first run")
	err = d.Run(ctx, false)
	assert.ErrorIs(t, err, ErrDebounced)
	assert.Equal(t, 1, store.count())

	// Forced run inside the window proceeds
	require.NoError(t, d.Run(ctx, true))
	assert.Equal(t, 2, store.count())
}

func TestDrainDebounceExpires(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := newMockStore()
	d := newTestDrainer(repos, store, 50*time.Millisecond, 50)

	appendEntries(t, repos, "We decided the debounce window can be short in tests")
	require.NoError(t, d.Run(ctx, false))

	appendEntries(t, repos, "Found the window expired after a short sleep")
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, d.Run(ctx, false))
	assert.Equal(t, 2, store.count())
}

func TestDrainBatchCap(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := newMockStore()
	d := newTestDrainer(repos, store, time.Nanosecond, 3)

	var texts []string
	for i := 0; i < 8; i++ {
		texts = append(texts, fmt.Sprintf("We decided on batch entry number %d", i))
	}
	appendEntries(t, repos, texts...)

	require.NoError(t, d.Run(ctx, true))
	assert.Equal(t, 3, store.count(), "one run indexes at most the batch cap")

	require.NoError(t, d.Run(ctx, true))
	require.NoError(t, d.Run(ctx, true))
	assert.Equal(t, 8, store.count(), "later runs pick up where the offset stopped")
}

func TestDrainFailedEntryStaysQueued(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := newMockStore()
	d := newTestDrainer(repos, store, time.Nanosecond, 50)

	entries := appendEntries(t, repos,
		"We decided the first entry indexes cleanly",
		"Found the second entry times out on the store",
		"We implemented the third entry to verify partial success",
	)
	store.failing[entries[1].ContentHash] = errors.New("store unavailable")

	require.NoError(t, d.Run(ctx, true))
	assert.Equal(t, 2, store.count(), "failure does not block the rest of the batch")

	// The offset stopped before the failed entry
	state, err := repos.IndexState.LoadIndexState(ctx)
	require.NoError(t, err)
	items, err := repos.Queue.ReadFrom(ctx, state.LastIndexedSeq, 10)
	require.NoError(t, err)
	require.Len(t, items, 2, "failed entry and its successor stay unconsumed")
	assert.Equal(t, entries[1].ContentHash, items[0].Entry.ContentHash)

	// Once the store recovers, the next run completes the prefix
	delete(store.failing, entries[1].ContentHash)
	require.NoError(t, d.Run(ctx, true))
	assert.Equal(t, 3, store.count())

	state, err = repos.IndexState.LoadIndexState(ctx)
	require.NoError(t, err)
	items, err = repos.Queue.ReadFrom(ctx, state.LastIndexedSeq, 10)
	require.NoError(t, err)
	assert.Empty(t, items, "everything consumed after recovery")
}
