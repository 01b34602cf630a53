package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called when the file holding key changes on disk
// without this process having written it.
type ChangeCallback func(key string)

const watchDebounce = 100 * time.Millisecond

// Watch observes the file behind key until ctx is cancelled and reports
// external modifications. Writes made through f itself are ignored.
func Watch(ctx context.Context, f *FS, key string, logger *slog.Logger, cb ChangeCallback) error {
	target, err := f.Path(key)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: atomic renames replace the file inode.
	if err := w.Add(f.root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			data, readErr := os.ReadFile(target)
			if readErr != nil {
				logger.Warn("watcher: read failed", slog.String("path", target), slog.String("error", readErr.Error()))
				continue
			}
			if f.wroteLast(key, data) {
				continue
			}
			logger.Info("watcher: snapshot changed externally", slog.String("key", key))
			if cb != nil {
				cb(key)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
