package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// WatchBundle reloads path into store whenever the file is created or
// rewritten. A bundle that fails to load is logged and ignored; the store keeps
// serving the previous one. onReload, if set, is called after every attempt.
// WatchBundle blocks until ctx is cancelled.
func WatchBundle(ctx context.Context, path string, store *BundleStore, logger *zap.Logger, onReload func(*Predictor, error)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The trainer replaces the file by rename, so the directory is watched.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("bundle watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			next, err := store.Reload(path)
			if err != nil {
				logger.Error("bundle reload failed, keeping current bundle", zap.String("path", path), zap.Error(err))
			} else {
				logger.Info("bundle reloaded", zap.String("path", path), zap.String("bundle_id", next.ID()))
			}
			if onReload != nil {
				onReload(next, err)
			}
		}
	}
}
