package cliconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the bursts of events editors produce on save.
const DefaultWatchDebounce = 100 * time.Millisecond

// Watcher re-validates a config file every time it changes on disk.
// It never writes the file.
type Watcher struct {
	path     string
	debounce time.Duration
	onLoad   func(Config, error)

	mu    sync.Mutex
	timer *time.Timer

	loadMu sync.Mutex
	closed bool
}

// NewWatcher creates a watcher for path. onLoad receives the result of
// LoadConfig once at start and after every change. Calls are serialized.
func NewWatcher(path string, debounce time.Duration, onLoad func(Config, error)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &Watcher{path: path, debounce: debounce, onLoad: onLoad}
}

// Run watches the directory holding the config file until ctx is done.
// The directory is watched rather than the file so that editors replacing
// the file by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	defer w.close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.load()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.load)
}

// close stops pending reloads and waits for one already running. No
// onLoad call starts after it returns.
func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.loadMu.Lock()
	w.closed = true
	w.loadMu.Unlock()
}

func (w *Watcher) load() {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	if w.closed {
		return
	}
	cfg, err := LoadConfig(w.path)
	w.onLoad(cfg, err)
}
