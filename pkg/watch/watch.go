// Package watch re-runs a callback when watched save files change on disk.
//
// The parent directory of every file is watched rather than the file itself,
// since the game and most editors replace saves by rename. Changes are
// debounced and the callback always runs on the Run goroutine, so reloads
// never overlap.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a fixed set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	files  map[string]struct{} // absolute, cleaned paths
	hashes map[string][32]byte // last seen content
}

// New creates a watcher for files. Every file must currently exist.
func New(files []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(files) == 0 {
		return nil, errors.New("watch: no files to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]struct{}, len(files)),
		hashes:   make(map[string][32]byte, len(files)),
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		w.hash(abs)
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
		logger.Debug("Watching directory", "path", dir)
	}

	return w, nil
}

// Close stops the watcher. A running Run returns.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is done or the watcher is closed. After a burst of
// changes settles, onChange is called with the sorted paths whose content
// differs from the last time they were seen.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if _, watched := w.files[path]; !watched {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("File change detected", "path", path, "op", event.Op.String())
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)

		case <-fire:
			fire = nil
			changed := w.flush(pending)
			clear(pending)
			if len(changed) > 0 {
				onChange(changed)
			}
		}
	}
}

// flush returns the pending paths whose content changed.
func (w *Watcher) flush(pending map[string]struct{}) []string {
	var changed []string
	for path := range pending {
		if w.hash(path) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// hash records the content hash of path and reports whether it changed.
// Files that cannot be read (mid-rename) are reported unchanged.
func (w *Watcher) hash(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Debug("Skipping unreadable file", "path", path, "error", err)
		return false
	}
	sum := sha256.Sum256(data)
	old, seen := w.hashes[path]
	w.hashes[path] = sum
	return !seen || old != sum
}
