package memstream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/memstream/config"
	"github.com/poiesic/memstream/core"
	"github.com/poiesic/memstream/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory index.VectorStore for pipeline tests.
type memoryStore struct {
	mu   sync.Mutex
	docs map[string]*core.JudgedEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]*core.JudgedEntry)}
}

func (m *memoryStore) Index(ctx context.Context, entry *core.JudgedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[entry.ContentHash] = entry
	return nil
}

func (m *memoryStore) Has(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, found := m.docs[hash]
	return found, nil
}

func (m *memoryStore) Close() error { return nil }

func writeTranscript(t *testing.T, path string, texts ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	for _, text := range texts {
		line := fmt.Sprintf("{\"role\":\"assistant\",\"content\":%q,\"timestamp\":%q}\n",
			text, time.Now().UTC().Format(time.RFC3339Nano))
		_, err := f.WriteString(line)
		require.NoError(t, err)
	}
}

func newTestPipeline(t *testing.T, transcriptDir string, store index.VectorStore) *Pipeline {
	t.Helper()
	cfg := config.New(
		config.WithTranscriptDir(transcriptDir),
		config.WithDataDir(t.TempDir()),
		config.WithMinBatch(1),
		config.WithDebounceWindow(time.Nanosecond),
	)
	p, err := NewPipeline(cfg, WithInMemoryStorage(), WithVectorStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPipelineEndToEnd(t *testing.T) {
	transcripts := t.TempDir()
	writeTranscript(t, filepath.Join(transcripts, "session-a.jsonl"),
		"We decided to switch to the cheaper model because of cost.",
		"thanks!",
		"You're amazing, thank you!",
	)

	store := newMemoryStore()
	p := newTestPipeline(t, transcripts, store)
	ctx := context.Background()

	require.NoError(t, p.ExtractOnce(ctx))
	require.NoError(t, p.JudgeOnce(ctx))
	require.NoError(t, p.DrainOnce(ctx, true))

	assert.Len(t, store.docs, 2, "decision and sentiment reach the index")

	decisionHash := core.ContentHash("We decided to switch to the cheaper model because of cost.")
	entry, found := store.docs[decisionHash]
	require.True(t, found)
	assert.Equal(t, core.CategoryDecision, entry.Category)
	assert.Equal(t, 7, entry.Importance)
}

func TestPipelineReplayIsIdempotent(t *testing.T) {
	transcripts := t.TempDir()
	path := filepath.Join(transcripts, "session-a.jsonl")
	text := "We decided to switch to the cheaper model because of cost."
	writeTranscript(t, path, text)

	store := newMemoryStore()
	p := newTestPipeline(t, transcripts, store)
	ctx := context.Background()

	require.NoError(t, p.ExtractOnce(ctx))
	require.NoError(t, p.JudgeOnce(ctx))

	// The same content arrives again in a later chunk
	writeTranscript(t, path, text)
	require.NoError(t, p.ExtractOnce(ctx))
	require.NoError(t, p.JudgeOnce(ctx))
	require.NoError(t, p.DrainOnce(ctx, true))

	items, err := p.QueueRepository().ReadFrom(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1, "one queue entry per unique normalized text")
	assert.Len(t, store.docs, 1)
}

func TestPipelineInvalidConfig(t *testing.T) {
	cfg := config.New(
		config.WithTranscriptDir(""),
		config.WithDataDir(t.TempDir()),
	)
	_, err := NewPipeline(cfg)
	assert.Error(t, err, "startup refuses an incomplete configuration")
}
