package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/memstream/core"
)

func TestIndexStateRoundTrip(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	// No state saved yet
	state, err := repos.IndexState.LoadIndexState(ctx)
	if err != nil {
		t.Fatalf("Failed to load index state: %v", err)
	}
	if state != nil {
		t.Fatalf("Expected nil state before first save, got %+v", state)
	}

	saved := &core.IndexState{
		LastIndexedSeq: 42,
		LastRunAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repos.IndexState.SaveIndexState(ctx, saved); err != nil {
		t.Fatalf("Failed to save index state: %v", err)
	}

	state, err = repos.IndexState.LoadIndexState(ctx)
	if err != nil {
		t.Fatalf("Failed to load index state: %v", err)
	}
	if state == nil {
		t.Fatal("Expected saved state, got nil")
	}
	if state.LastIndexedSeq != 42 {
		t.Fatalf("Expected LastIndexedSeq 42, got %d", state.LastIndexedSeq)
	}
	if !state.LastRunAt.Equal(saved.LastRunAt) {
		t.Fatalf("Expected LastRunAt %v, got %v", saved.LastRunAt, state.LastRunAt)
	}

	// Saving again overwrites
	saved.LastIndexedSeq = 100
	if err := repos.IndexState.SaveIndexState(ctx, saved); err != nil {
		t.Fatalf("Failed to overwrite index state: %v", err)
	}
	state, err = repos.IndexState.LoadIndexState(ctx)
	if err != nil {
		t.Fatalf("Failed to reload index state: %v", err)
	}
	if state.LastIndexedSeq != 100 {
		t.Fatalf("Expected LastIndexedSeq 100, got %d", state.LastIndexedSeq)
	}
}
