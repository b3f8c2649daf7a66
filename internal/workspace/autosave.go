package workspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/memodesk/internal/metrics"
)

// DefaultAutosaveInterval is how often an open draft is committed.
const DefaultAutosaveInterval = 30 * time.Second

// Autosave commits the open draft, if there is one, and reports whether it
// did.
func (w *Workspace) Autosave() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return false, nil
	}
	w.commitLocked()
	metrics.Autosaves.Inc()
	return true, w.persistLocked()
}

// RunAutosave calls Autosave every interval until ctx is cancelled.
func (w *Workspace) RunAutosave(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			saved, err := w.Autosave()
			if err != nil {
				w.logger.Warn("autosave: failed", slog.String("error", err.Error()))
				continue
			}
			if saved {
				w.logger.Debug("autosave: draft committed")
			}
		}
	}
}
