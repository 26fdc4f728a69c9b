// Package dropwatch watches a local "drop folder" and hands over files once
// they have stopped changing, so they can be uploaded.
package dropwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ghsbrowse/ghsbrowse/internal/logging"
)

// DefaultSettle is how long a file must stay unchanged before it is
// handed over.
const DefaultSettle = 500 * time.Millisecond

// Handler receives the files that settled during one tick, in name order.
type Handler func(ctx context.Context, paths []string)

// Watcher watches one directory (not recursively).
type Watcher struct {
	dir     string
	settle  time.Duration
	handler Handler

	mu      sync.Mutex
	pending map[string]time.Time // path -> last event
}

// New creates a watcher for dir.
func New(dir string, settle time.Duration, handler Handler) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		handler: handler,
		pending: make(map[string]time.Time),
	}
}

// Ignored reports whether a file name is editor or temp noise.
func Ignored(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") || strings.HasSuffix(base, ".crdownload")
}

// Run watches until ctx is done. The handler runs on the watch goroutine,
// so events arriving while it works are queued.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logging.Info("watching drop folder", logging.String("dir", w.dir), logging.Duration("settle", w.settle))

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.observe(event, time.Now())
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("drop folder watch error", logging.Err(err))
		case now := <-ticker.C:
			if ready := w.ready(now); len(ready) > 0 {
				w.handler(ctx, ready)
			}
		}
	}
}

func (w *Watcher) observe(event fsnotify.Event, at time.Time) {
	if Ignored(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.pending[event.Name] = at
	}
}

// ready removes and returns the pending regular files that have been quiet
// for the settle period.
func (w *Watcher) ready(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	for p, last := range w.pending {
		if now.Sub(last) < w.settle {
			continue
		}
		delete(w.pending, p)
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
