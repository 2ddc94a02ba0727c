package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/metrics"
	"git.home.luguber.info/inful/docbinder/internal/publish"
)

// Cycle is the publish work a watcher drives. *publish.Publisher satisfies it.
type Cycle interface {
	Stale(ctx context.Context) (bool, error)
	Publish(ctx context.Context) (*publish.Result, error)
}

// Options configures a Watcher.
type Options struct {
	Paths        []string // directories watched recursively
	Ignore       []string // directories whose events are dropped (output trees)
	Repos        []string // local working copies pulled on every poll
	Debounce     time.Duration
	PollInterval time.Duration
}

// Watcher serializes publish cycles triggered by file events and polling.
type Watcher struct {
	cycle    Cycle
	puller   Puller
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder

	requests chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher. puller may be nil to disable polling.
func New(cycle Cycle, puller Puller, opts Options, logger *slog.Logger, recorder metrics.Recorder) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cycle:    cycle,
		puller:   puller,
		opts:     opts,
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
		requests: make(chan struct{}, 1),
	}
}

// Run publishes once, then rebinds on every debounced change until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	for _, p := range w.opts.Paths {
		w.addDirsRecursive(fsw, p)
	}

	if w.puller != nil && w.opts.PollInterval > 0 && len(w.opts.Repos) > 0 {
		stop, err := w.startPolling(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	w.runCycle(ctx)
	w.logger.Info("Watching for changes", logfields.Count(len(w.opts.Paths)))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		case <-w.requests:
			w.runCycle(ctx)
		}
	}
}

// Trigger asks for a cycle after the debounce period. Bursts collapse into one.
func (w *Watcher) Trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.request)
}

func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// runCycle publishes when anything is stale. Failures are logged; the watch
// keeps going.
func (w *Watcher) runCycle(ctx context.Context) {
	stale, err := w.cycle.Stale(ctx)
	if err != nil {
		w.logger.Warn("Staleness check failed; rebuilding", logfields.Error(err))
	}
	if !stale {
		w.recorder.IncPublishOutcome(metrics.OutcomeUnchanged)
		w.logger.Info("No changes; skipping render")
		return
	}

	res, err := w.cycle.Publish(ctx)
	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		w.logger.Error("Rebind failed", logfields.Error(err))
	case !res.Success:
		w.logger.Warn("Rebind produced broken links", slog.Any("links", res.BrokenLinks))
	default:
		w.logger.Info("Rebind complete", logfields.RunID(res.RunID), logfields.Path(res.PublicDir))
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(fsw, ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.Trigger()
}

func (w *Watcher) ignored(path string) bool {
	if shouldIgnoreEvent(path) {
		return true
	}
	for _, dir := range w.opts.Ignore {
		if within(dir, path) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" || w.ignored(path) && path != root {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent drops hidden, editor swap and backup files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}

func within(dir, path string) bool {
	absDir, err1 := filepath.Abs(dir)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
