// Package watcher reports record files that appear or disappear in the data
// directory, including changes made by hand or by another process.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

// Op describes what happened to a record file.
type Op string

const (
	OpAdded   Op = "added"
	OpRemoved Op = "removed"
)

// Event is a debounced change to one record file.
type Event struct {
	File string
	Op   Op
	At   time.Time
}

// Handler receives debounced events. It is called from the watcher goroutine.
type Handler func(Event)

// Config holds watcher options.
type Config struct {
	// Dir is the directory to watch. It is created if missing.
	Dir string

	// DebounceDelay collapses bursts (temp write + rename) into one event per file.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Filter selects the file names worth reporting. Nil reports every file.
	Filter func(name string) bool
}

// Watcher watches one directory with fsnotify.
type Watcher struct {
	cfg     Config
	handler Handler
	logger  log.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	last    time.Time
}

// New creates a watcher. Call Run to start it.
func New(cfg Config, handler Handler, logger log.Logger) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// LastChange returns the time of the most recent reported event, or the zero time.
func (w *Watcher) LastChange() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Run blocks until ctx is cancelled or the fsnotify watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("create watched dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	defer w.stopPending()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.logger.Info("watching transfer directory", log.String("dir", w.cfg.Dir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("directory watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if w.cfg.Filter != nil && !w.cfg.Filter(name) {
		return
	}

	// Renaming a temp file into place shows up as Create on the final name.
	var op Op
	switch {
	case event.Op&fsnotify.Create != 0, event.Op&fsnotify.Write != 0:
		op = OpAdded
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpRemoved
	default:
		return
	}
	w.debounce(name, op)
}

// debounce reports the last op seen for name once no new event arrives for DebounceDelay.
func (w *Watcher) debounce(name string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	w.pending[name] = time.AfterFunc(w.cfg.DebounceDelay, func() {
		now := time.Now()
		w.mu.Lock()
		delete(w.pending, name)
		w.last = now
		w.mu.Unlock()

		if w.handler != nil {
			w.handler(Event{File: name, Op: op, At: now})
		}
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
}
