package service

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ─────────────────────────────────────────────────────────────
// Source Watcher: tells the frontend when the open file changes
// ─────────────────────────────────────────────────────────────

const sourceDebounce = 500 * time.Millisecond

// SourceWatcher watches the file the open document was imported from.
// Writes are debounced and reported as document:source-changed so the
// frontend can offer a reload.
type SourceWatcher struct {
	emitter  EventEmitter
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	path    string
}

// NewSourceWatcher creates a SourceWatcher. Nothing is watched until Watch.
func NewSourceWatcher(emitter EventEmitter) *SourceWatcher {
	return &SourceWatcher{emitter: emitter, debounce: sourceDebounce}
}

// SetDebounce overrides the debounce interval.
func (w *SourceWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Watch replaces the watched file with path. An empty path stops watching.
// The parent directory is watched since editors often replace files
// instead of writing them in place.
func (w *SourceWatcher) Watch(ctx context.Context, path string) error {
	w.Stop()
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.path = abs
	debounce := w.debounce
	w.mu.Unlock()

	go w.loop(watchCtx, watcher, abs, debounce)
	log.Printf("[WATCH] watching %s", abs)
	return nil
}

// Path returns the watched file, or "" when idle.
func (w *SourceWatcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Stop tears down the watcher. Safe to call repeatedly.
func (w *SourceWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
	w.path = ""
}

func (w *SourceWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if abs, _ := filepath.Abs(event.Name); abs != path {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[WATCH] source changed %s", path)
				w.emitter.Emit(ctx, EventSourceChanged, path)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCH] error: %v", err)
		}
	}
}
