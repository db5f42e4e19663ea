package daemon

import (
	"context"
	"log/slog"
	"time"
)

// CycleFunc is one daemon work cycle. A cycle must complete its own
// commits; cancellation is only observed between cycles.
type CycleFunc func(ctx context.Context) error

// Loop runs fn immediately and then on every tick until ctx is cancelled.
// Cycle errors are logged, never fatal: the next tick retries.
func Loop(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, fn CycleFunc) {
	LoopWithWake(ctx, name, interval, nil, logger, fn)
}

// LoopWithWake is Loop with an additional wake channel: a receive triggers
// a cycle without waiting for the next tick. Used to react to filesystem
// change notifications between ticks.
func LoopWithWake(ctx context.Context, name string, interval time.Duration, wake <-chan struct{}, logger *slog.Logger, fn CycleFunc) {
	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Error("cycle failed", "daemon", name, "error", err)
		}
	}

	logger.Info("daemon started", "daemon", name, "interval", interval)
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopped", "daemon", name)
			return
		case <-ticker.C:
			run()
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			run()
		}
	}
}
