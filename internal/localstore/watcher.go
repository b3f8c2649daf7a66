package localstore

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/memodesk/internal/checksum"
	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/models"
)

// ChangeCallback receives a snapshot rewritten by another process.
type ChangeCallback func(snap *models.Snapshot)

const watchDebounce = 200 * time.Millisecond

// Watch observes the snapshot file for rewrites made outside this process
// and calls cb with the newly loaded snapshot until ctx is cancelled.
// Writes made through this Store are recognised by checksum and skipped.
// Only the file-backed store can be watched; for other backends Watch
// returns immediately.
func (s *Store) Watch(ctx context.Context, cb ChangeCallback) error {
	fsStore, ok := s.kv.(*kv.FS)
	if !ok {
		s.logger.Debug("watcher: backend does not support watching")
		return nil
	}
	target, err := fsStore.Path(DataKey)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fsStore.Root()); err != nil {
		return err
	}
	s.logger.Info("watcher: started", slog.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			fire = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			s.reloadExternal(cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (s *Store) reloadExternal(cb ChangeCallback) {
	data, err := s.kv.Get(DataKey)
	if err != nil {
		s.logger.Warn("watcher: read failed", slog.String("error", err.Error()))
		return
	}
	sum := checksum.Sum(data)
	if s.isOwnWrite(sum) {
		return
	}
	snap, err := Decode(data)
	if err != nil {
		s.logger.Warn("watcher: ignoring unparsable snapshot", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.lastWritten = sum
	s.mu.Unlock()

	s.logger.Info("watcher: external snapshot change", slog.String("checksum", sum[:12]))
	if cb != nil {
		cb(snap)
	}
}
