package interchange

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher imports files dropped into a directory. A file is imported once
// it has been quiet for the debounce interval, then moved to Imported.
type Watcher struct {
	svc      *Service
	dir      string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// OnImport, when set, is called after each attempt.
	OnImport func(FileResult)

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// NewWatcher watches dir. A non-positive debounce uses 500ms.
func NewWatcher(svc *Service, dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		svc:      svc,
		dir:      abs,
		debounce: debounce,
		watcher:  fsw,
		logger:   slog.Default().With("dir", abs),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Run processes files already in the directory, then blocks handling events
// until ctx is cancelled. Pending imports finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.wg.Wait()
	defer w.stopTimers()
	defer w.watcher.Close()

	results, err := w.svc.ImportDir(ctx, w.dir)
	if err != nil {
		w.logger.Error("initial directory import failed", "error", err)
	}
	for _, r := range results {
		w.report(r)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Only files directly inside the directory, not Imported/.
			if filepath.Dir(event.Name) != w.dir || !Importable(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// schedule (re)starts the quiet-period timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.timers[path] == timer {
			delete(w.timers, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		res, err := w.svc.importAndArchive(ctx, path)
		w.report(FileResult{Path: path, Result: res, Err: err})
	})
	w.timers[path] = timer
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
}

func (w *Watcher) report(r FileResult) {
	if r.Err != nil {
		w.logger.Warn("file import failed", "file", filepath.Base(r.Path), "error", r.Err)
	}
	if w.OnImport != nil {
		w.OnImport(r)
	}
}

// Close stops watching without waiting for Run.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
