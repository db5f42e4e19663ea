package extract

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher subscribes to transcript directory changes so the extractor can
// react between ticks instead of waiting out its full interval. Events are
// coalesced: a burst of writes produces at most one pending change.
type Watcher struct {
	fsw     *fsnotify.Watcher
	changes chan struct{}
	logger  *slog.Logger
}

// NewWatcher watches dir for transcript writes.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		changes: make(chan struct{}, 1),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

// Changes signals that at least one transcript changed since the last
// receive.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching. The changes channel is closed afterwards.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.changes)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if filepath.Ext(event.Name) != ".jsonl" {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("transcript watch error", "error", err)
		}
	}
}
