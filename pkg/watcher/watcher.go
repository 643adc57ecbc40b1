package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports debounced changes to a single file.
//
// The parent directory is watched rather than the file itself so that
// editors and tools that replace the file by rename are still seen.
type Watcher struct {
	path      string
	debouncer *Debouncer
	logger    *slog.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
	started bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce window.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debouncer = NewDebouncer(d)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watch path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	w := &Watcher{
		path:      abs,
		debouncer: NewDebouncer(0),
		logger:    slog.New(slog.DiscardHandler),
		changed:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It is an error to start twice.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw
	w.done = make(chan struct{})
	w.started = true

	go w.loop(fsw, w.done)
	return nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.debouncer.Trigger(w.notify)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "path", w.path, "error", err)
		case <-done:
			return
		}
	}
}

// notify delivers at most one pending change; further changes coalesce
// until the receiver drains the channel.
func (w *Watcher) notify() {
	select {
	case w.changed <- struct{}{}:
		w.logger.Debug("watched file changed", "path", w.path)
	default:
	}
}

// Changed returns the channel that receives a value after each debounced
// change.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Path returns the absolute watched path.
func (w *Watcher) Path() string {
	return w.path
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.started = false
	w.debouncer.Cancel()
	close(w.done)
	w.fsw.Close()
}
