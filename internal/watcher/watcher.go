// Package watcher reports changes to a single file, such as the settings file,
// so the worker can restart with fresh configuration.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Change is the kind of change observed on the target.
type Change int

const (
	// Modified means the target was written, created or renamed into place.
	Modified Change = iota + 1
	// Removed means the target (or its directory) is gone.
	Removed
)

func (c Change) String() string {
	switch c {
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Watcher monitors one file. It watches the parent directory because editors
// commonly replace files by rename, which drops a watch on the file itself.
// Bursts of events are coalesced; the callback receives the last change.
type Watcher struct {
	targetPath string
	parentPath string
	onChange   func(Change)
	watcher    *fsnotify.Watcher
	debounce   time.Duration

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	pending Change
	done    chan struct{}
}

// New creates a Watcher for targetPath.
func New(targetPath string, onChange func(Change)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	targetPath = filepath.Clean(targetPath)
	return &Watcher{
		targetPath: targetPath,
		parentPath: filepath.Dir(targetPath),
		onChange:   onChange,
		watcher:    fsw,
		debounce:   100 * time.Millisecond,
		done:       make(chan struct{}),
	}, nil
}

// SetDebounce changes the coalescing window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", w.parentPath).Msg("Failed to add initial watch")
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher and cancels a pending callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.watcher.Close()
}

func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.parentPath); err != nil {
		return err
	}
	return w.watcher.Add(w.parentPath)
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if change, ok := w.classify(event); ok {
				w.schedule(change)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) classify(event fsnotify.Event) (Change, bool) {
	eventPath := filepath.Clean(event.Name)

	switch eventPath {
	case w.parentPath:
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			log.Info().Str("path", w.parentPath).Msg("Parent directory deleted")
			return Removed, true
		}
	case w.targetPath:
		switch {
		case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
			return Modified, true
		case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
			return Removed, true
		}
	}
	return 0, false
}

func (w *Watcher) schedule(change Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	w.pending = change
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	change := w.pending
	w.mu.Unlock()

	// A remove followed by a create within the window is an atomic replace.
	if change == Removed {
		if _, err := os.Stat(w.targetPath); err == nil {
			change = Modified
		}
	}

	log.Info().Str("path", w.targetPath).Stringer("change", change).Msg("Watched file changed")
	if w.onChange != nil {
		w.onChange(change)
	}
}
