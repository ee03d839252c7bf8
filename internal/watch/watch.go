// Package watch monitors a project tree for source changes and triggers
// rebuilds. Events are debounced so editor save bursts collapse into a
// single rebuild, and rebuilds run sequentially with at most one pending.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the settle window after the last filesystem event
// before a rebuild fires.
const DefaultDebounce = 500 * time.Millisecond

// sourceExtensions are the file types whose changes trigger a rebuild.
var sourceExtensions = map[string]bool{
	".c":     true,
	".cc":    true,
	".cpp":   true,
	".cxx":   true,
	".h":     true,
	".hh":    true,
	".hpp":   true,
	".hxx":   true,
	".inl":   true,
	".cmake": true,
}

// Watcher rebuilds a project whenever its sources change.
type Watcher struct {
	root     string
	debounce time.Duration
	rebuild  func(ctx context.Context)
	log      *slog.Logger
}

// New creates a watcher over root. rebuild is invoked after each settled
// burst of changes; it is never called concurrently with itself.
func New(root string, debounce time.Duration, rebuild func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		rebuild:  rebuild,
		log:      slog.Default(),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := addDirsRecursive(fsw, w.root); err != nil {
		return err
	}

	rebuildReq := make(chan struct{}, 1)
	trigger := w.makeTrigger(rebuildReq)
	go w.rebuildWorker(ctx, rebuildReq)

	w.log.Info("watching for source changes", "dir", w.root, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev, trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

// makeTrigger returns a debounced function that requests a rebuild after
// the settle window passes without further calls.
func (w *Watcher) makeTrigger(rebuildReq chan struct{}) func() {
	var mu sync.Mutex
	var timer *time.Timer

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
}

// rebuildWorker serializes rebuilds. Changes arriving mid-rebuild queue
// exactly one follow-up run.
func (w *Watcher) rebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			w.log.Info("change detected, rebuilding")
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if !skipDir(filepath.Base(ev.Name)) {
				_ = addDirsRecursive(fsw, ev.Name)
			}
			return
		}
	}
	if !triggersRebuild(ev.Name) {
		return
	}
	w.log.Debug("source change", "path", ev.Name, "op", ev.Op.String())
	trigger()
}

// triggersRebuild reports whether a change to path warrants a rebuild.
func triggersRebuild(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	if base == "CMakeLists.txt" {
		return true
	}
	return sourceExtensions[strings.ToLower(filepath.Ext(base))]
}

// skipDir reports whether a directory and its contents are excluded from
// watching. Build output trees are skipped so our own compiles do not
// retrigger rebuilds.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	if name == "build" || name == "out" || name == "node_modules" {
		return true
	}
	return strings.HasPrefix(name, "cmake-build-")
}

func addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			slog.Warn("watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}
