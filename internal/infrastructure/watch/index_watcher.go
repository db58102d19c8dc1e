// Package watch reloads the serving index when its files are replaced by
// another process, e.g. `ragctl reindex` or `ragctl rollback`.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// IndexWatcher watches the directories holding the index and metadata files
// and calls reload once per burst of changes to either file.
type IndexWatcher struct {
	targets  map[string]struct{}
	dirs     []string
	debounce time.Duration
	reload   func(ctx context.Context) error
}

func NewIndexWatcher(indexPath, metaPath string, debounce time.Duration, reload func(ctx context.Context) error) *IndexWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	targets := make(map[string]struct{}, 2)
	dirs := make([]string, 0, 2)
	for _, p := range []string{indexPath, metaPath} {
		clean := filepath.Clean(p)
		targets[clean] = struct{}{}
		dir := filepath.Dir(clean)
		if len(dirs) == 0 || dirs[0] != dir {
			dirs = append(dirs, dir)
		}
	}
	return &IndexWatcher{targets: targets, dirs: dirs, debounce: debounce, reload: reload}
}

// Run blocks until ctx is done. Missing directories are created so the
// watcher can start before the first reindex.
func (w *IndexWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("index_watch_error", "error", err)
		case <-timer.C:
			if err := w.reload(ctx); err != nil {
				slog.Warn("index_watch_reload_failed", "error", err)
				continue
			}
			slog.Info("index_watch_reloaded")
		}
	}
}

// relevant reports whether event replaced or rewrote one of the watched files.
// Atomic writes show up as Create on the target name.
func (w *IndexWatcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.targets[filepath.Clean(event.Name)]; !ok {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
