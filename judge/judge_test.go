package judge

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/memstream/core"
	badgerstore "github.com/poiesic/memstream/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJudge(t *testing.T, repos *badgerstore.MemoryRepositories) *Judge {
	t.Helper()
	classifier := NewLexiconClassifier(DefaultLexicon(), 50)
	j, err := New(repos.Chunks, repos.Queue, repos.Sources, classifier, 5, "judge",
		slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func stageTestChunk(t *testing.T, repos *badgerstore.MemoryRepositories, sourceID core.ID, texts ...string) *core.Chunk {
	t.Helper()
	chunk := &core.Chunk{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		CreatedAt: time.Now().UTC(),
	}
	for _, text := range texts {
		chunk.Records = append(chunk.Records, core.MessageRecord{
			Role:      core.RoleAssistant,
			Text:      text,
			Timestamp: time.Now().UTC(),
			SourceID:  sourceID,
		})
	}
	require.NoError(t, repos.Chunks.StageChunk(context.Background(), chunk))
	return chunk
}

func TestJudgeRunOnce(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	j := newTestJudge(t, repos)

	sourceID := core.SourceIDFromPath("/transcripts/session-a.jsonl")
	require.NoError(t, repos.Sources.PutSource(ctx, &core.Source{
		ID:   sourceID,
		Path: "/transcripts/session-a.jsonl",
	}))

	stageTestChunk(t, repos, sourceID,
		"We decided to switch to the cheaper model because of cost.",
		"thanks!",
		"You're amazing, thank you!",
	)

	require.NoError(t, j.RunOnce(ctx))

	items, err := repos.Queue.ReadFrom(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 2, "decision and sentiment qualify, bare thanks does not")

	assert.Equal(t, core.CategoryDecision, items[0].Entry.Category)
	assert.Equal(t, 7, items[0].Entry.Importance)
	assert.Equal(t, "judge:/transcripts/session-a.jsonl", items[0].Entry.Source)
	assert.NotEmpty(t, items[0].Entry.ContentHash)

	assert.Equal(t, core.CategorySentiment, items[1].Entry.Category)
	assert.Equal(t, 6, items[1].Entry.Importance)

	// The chunk was committed
	chunks, err := repos.Chunks.ListChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestJudgeBelowThresholdNotPersisted(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	classifier := NewLexiconClassifier(DefaultLexicon(), 50)
	j, err := New(repos.Chunks, repos.Queue, repos.Sources, classifier, 8, "judge",
		slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer j.Close()

	sourceID := core.SourceIDFromPath("/transcripts/session-a.jsonl")
	stageTestChunk(t, repos, sourceID,
		"You're amazing, thank you!", // sentiment scores 6, below threshold 8
	)

	require.NoError(t, j.RunOnce(ctx))

	items, err := repos.Queue.ReadFrom(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	// The chunk is still committed even when nothing qualified
	chunks, err := repos.Chunks.ListChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestJudgeReprocessingIsIdempotent(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	j := newTestJudge(t, repos)

	sourceID := core.SourceIDFromPath("/transcripts/session-a.jsonl")
	text := "We decided to switch to the cheaper model because of cost."

	// The same content staged twice, as after a crash between append
	// and chunk deletion
	stageTestChunk(t, repos, sourceID, text)
	require.NoError(t, j.RunOnce(ctx))
	stageTestChunk(t, repos, sourceID, text)
	require.NoError(t, j.RunOnce(ctx))

	items, err := repos.Queue.ReadFrom(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1, "hash dedup collapses the replay")
	assert.Equal(t, core.ContentHash(text), items[0].Entry.ContentHash)
}

func TestJudgeMultipleSources(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	j := newTestJudge(t, repos)

	sourceA := core.SourceIDFromPath("/transcripts/session-a.jsonl")
	sourceB := core.SourceIDFromPath("/transcripts/session-b.jsonl")

	stageTestChunk(t, repos, sourceA,
		"We decided to adopt the staged extraction approach for the pipeline.")
	stageTestChunk(t, repos, sourceB,
		"Found the root cause of the drift in the checkpoint offsets today.")

	require.NoError(t, j.RunOnce(ctx))

	items, err := repos.Queue.ReadFrom(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	chunks, err := repos.Chunks.ListChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestJudgePerSourceOrderPreserved(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	j := newTestJudge(t, repos)

	sourceID := core.SourceIDFromPath("/transcripts/session-a.jsonl")
	first := "We decided to stage chunks before advancing the checkpoint at all."
	second := "We then discovered the staging order survives a daemon restart too."

	stageTestChunk(t, repos, sourceID, first)
	stageTestChunk(t, repos, sourceID, second)

	require.NoError(t, j.RunOnce(ctx))

	items, err := repos.Queue.ReadFrom(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first, items[0].Entry.Text)
	assert.Equal(t, second, items[1].Entry.Text)
}
