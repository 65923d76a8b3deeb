package rename

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch monitors the watch directory and renames files as they appear.
// It returns when ctx is cancelled.
func (r *Renamer) Watch(ctx context.Context) error {
	if _, err := os.Stat(r.cfg.WatchDirectory); err != nil {
		return fmt.Errorf("watch directory does not exist: %s", r.cfg.WatchDirectory)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.cfg.WatchDirectory); err != nil {
		return fmt.Errorf("watching %s: %w", r.cfg.WatchDirectory, err)
	}
	r.log.Info("starting to monitor", zap.String("path", r.cfg.WatchDirectory))

	// Our own renames emit a Create for the target path; those are skipped.
	produced := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("stopping file renamer")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			if produced[ev.Name] {
				delete(produced, ev.Name)
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil || info.IsDir() {
				continue
			}
			r.log.Info("new file detected", zap.String("path", ev.Name))

			// Give the downloader a moment to finish writing.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.settle):
			}
			target, err := r.Rename(ev.Name)
			if err != nil {
				r.log.Error("processing file", zap.String("path", ev.Name), zap.Error(err))
			} else if target != "" {
				produced[target] = true
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error("watch error", zap.Error(err))
		}
	}
}
