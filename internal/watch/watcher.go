// Package watch delivers debounced change notifications for the single
// directory a pane is currently showing.
package watch

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/paneworks/explorer/internal/debug"
)

// Watcher watches one directory (non-recursive) and coalesces bursts of
// change events into a single notification. It is rearmed on every
// navigation; events for a previously armed path are dropped.
type Watcher struct {
	fsw      *fsnotify.Watcher
	notify   chan string
	done     chan struct{}
	debounce time.Duration
	lost     atomic.Bool

	mu    sync.Mutex
	armed string // currently watched directory, "" when disarmed
}

// New creates a watcher with the given debounce interval.
func New(debounceMs int) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounceMs <= 0 {
		debounceMs = 600
	}

	w := &Watcher{
		fsw:      fsw,
		notify:   make(chan string, 4),
		done:     make(chan struct{}),
		debounce: time.Duration(debounceMs) * time.Millisecond,
	}

	go w.run()
	return w, nil
}

// run processes filesystem events with debouncing.
func (w *Watcher) run() {
	var pendingPath string
	var lastEvent time.Time
	pending := false

	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.markLost()
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}

			dir := filepath.Dir(event.Name)
			w.mu.Lock()
			armed := w.armed
			w.mu.Unlock()

			// The event names a child of the armed directory, or the
			// directory itself (e.g. permission change). Anything else
			// is a stale event for an abandoned path.
			if armed == "" || (dir != armed && event.Name != armed) {
				continue
			}
			debug.Log(debug.WATCH, "event: %s on %s", event.Op, event.Name)
			pendingPath = armed
			lastEvent = time.Now()
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.markLost()
				return
			}
			debug.Log(debug.WATCH, "error: %v", err)

		case <-ticker.C:
			if !pending || time.Since(lastEvent) < w.debounce {
				continue
			}
			pending = false

			// Drop the notification if the pane moved on meanwhile.
			w.mu.Lock()
			stillArmed := w.armed == pendingPath
			w.mu.Unlock()
			if !stillArmed {
				debug.Log(debug.WATCH, "dropping stale notification for %s", pendingPath)
				continue
			}
			select {
			case w.notify <- pendingPath:
				debug.Log(debug.WATCH, "change notification: %s", pendingPath)
			default:
				// Consumer hasn't drained the last one yet; it will
				// re-scan anyway.
			}
		}
	}
}

// Arm replaces the watched directory. Watching the previous path stops.
func (w *Watcher) Arm(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.armed == path {
		return nil
	}
	if w.armed != "" {
		// The old path may already be gone; nothing to do about it.
		if err := w.fsw.Remove(w.armed); err != nil {
			debug.Log(debug.WATCH, "unwatch %s: %v", w.armed, err)
		}
		w.armed = ""
	}

	if err := w.fsw.Add(path); err != nil {
		return err
	}
	w.armed = path
	debug.Log(debug.WATCH, "armed: %s", path)
	return nil
}

// Disarm stops watching without closing the watcher, used when a pane enters
// fast mode or shows a search result.
func (w *Watcher) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.armed == "" {
		return
	}
	if err := w.fsw.Remove(w.armed); err != nil {
		debug.Log(debug.WATCH, "unwatch %s: %v", w.armed, err)
	}
	debug.Log(debug.WATCH, "disarmed: %s", w.armed)
	w.armed = ""
}

// Notify returns the channel carrying debounced change notifications. Each
// value is the directory that changed.
func (w *Watcher) Notify() <-chan string {
	return w.notify
}

// Lost reports whether the notification subscription dropped. A lost watcher
// is not an error surface to the user; listings fall back to manual refresh.
func (w *Watcher) Lost() bool {
	return w.lost.Load()
}

func (w *Watcher) markLost() {
	if w.lost.CompareAndSwap(false, true) {
		debug.Log(debug.WATCH, "notification subscription lost, falling back to manual refresh")
	}
}

// Close shuts down the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
