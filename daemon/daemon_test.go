package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "extractor.pid")

	require.NoError(t, WritePIDFile(path, 12345))

	pid, err := ReadPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)

	require.NoError(t, RemovePIDFile(path))
	require.NoError(t, RemovePIDFile(path), "removal is idempotent")
}

func TestCheckStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judge.pid")

	status, pid, err := CheckStatus(path)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, status)
	assert.Zero(t, pid)

	// Our own PID is alive
	require.NoError(t, WritePIDFile(path, os.Getpid()))
	status, pid, err = CheckStatus(path)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status)
	assert.Equal(t, os.Getpid(), pid)

	// An impossibly high PID is dead
	require.NoError(t, WritePIDFile(path, 1<<22-7))
	status, _, err = CheckStatus(path)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judge.lock")

	lock, err := AcquireLock(path)
	require.NoError(t, err)

	// Our own live lock does not block re-acquisition by the same
	// process: the pid matches, so the file is treated as stale
	relock, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, relock.Release())

	require.NoError(t, lock.Release())
}

func TestAcquireLockTakesOverStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judge.lock")

	// A lock from a process that no longer exists
	require.NoError(t, os.WriteFile(path, []byte("4194297"), 0o600))

	lock, err := AcquireLock(path)
	require.NoError(t, err, "stale locks are taken over")
	require.NoError(t, lock.Release())
}

func TestLoopRunsImmediatelyAndStops(t *testing.T) {
	var cycles atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Loop(ctx, "test", time.Hour, slog.New(slog.DiscardHandler), func(context.Context) error {
			cycles.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return cycles.Load() == 1 },
		time.Second, 5*time.Millisecond, "first cycle runs before the first tick")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancellation")
	}
}

func TestLoopWake(t *testing.T) {
	var cycles atomic.Int32
	wake := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		LoopWithWake(ctx, "test", time.Hour, wake, slog.New(slog.DiscardHandler), func(context.Context) error {
			cycles.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return cycles.Load() == 1 },
		time.Second, 5*time.Millisecond)

	wake <- struct{}{}
	require.Eventually(t, func() bool { return cycles.Load() == 2 },
		time.Second, 5*time.Millisecond, "a wake triggers a cycle between ticks")

	cancel()
	<-done
}
