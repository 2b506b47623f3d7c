// Package watcher re-syncs search indexes when the catalog file changes.
//
// The catalog's directory is watched with fsnotify, because editors and
// deploy tools usually replace files by rename, which drops a watch placed
// on the file itself. When fsnotify cannot be used the file is polled.
// Bursts of events are debounced into a single sync.
//
// Usage:
//
//	w := watcher.New(cfg.Catalog.Path, func(ctx context.Context) error {
//	    _, err := svc.SyncIndexes(ctx)
//	    return err
//	}, watcher.DefaultOptions(), logger)
//	err := w.Run(ctx) // blocks until ctx is done
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch modes reported by Mode.
const (
	ModeFsnotify = "fsnotify"
	ModePolling  = "polling"
)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last change before syncing.
	Debounce time.Duration

	// PollInterval is the stat interval of the polling fallback.
	PollInterval time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns a 500ms debounce and a 2s poll interval.
func DefaultOptions() Options {
	return Options{
		Debounce:     500 * time.Millisecond,
		PollInterval: 2 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	return o
}

// SyncFunc is invoked after the catalog settles.
type SyncFunc func(ctx context.Context) error

// Watcher runs a SyncFunc whenever a catalog file changes.
type Watcher struct {
	path   string
	sync   SyncFunc
	opts   Options
	logger *slog.Logger

	mode  atomic.Value // string
	syncs atomic.Int64
}

// New creates a Watcher for the catalog at path.
func New(path string, sync SyncFunc, opts Options, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{path: path, sync: sync, opts: opts.WithDefaults(), logger: logger}
	w.mode.Store("")
	return w
}

// Mode returns the active watch mode, or "" before Run starts watching.
func (w *Watcher) Mode() string { return w.mode.Load().(string) }

// Syncs returns the number of completed sync invocations.
func (w *Watcher) Syncs() int64 { return w.syncs.Load() }

// Run watches until ctx is done. Sync failures are logged and do not stop
// the watcher. Returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve catalog path: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deb := NewDebouncer(w.opts.Debounce)
	defer deb.Stop()

	started := false
	if !w.opts.ForcePolling {
		fsw, err := w.startFsnotify(abs)
		if err == nil {
			started = true
			w.mode.Store(ModeFsnotify)
			go w.forwardFsnotify(ctx, fsw, abs, deb)
		} else {
			w.logger.Warn("catalog_watch_fsnotify_unavailable",
				slog.String("path", abs),
				slog.String("error", err.Error()))
		}
	}
	if !started {
		p, err := newPoller(abs, w.opts.PollInterval)
		if err != nil {
			return fmt.Errorf("stat catalog: %w", err)
		}
		w.mode.Store(ModePolling)
		go p.run(ctx, deb.Trigger, func(err error) {
			w.logger.Warn("catalog_poll_failed", slog.String("path", abs), slog.String("error", err.Error()))
		})
	}

	w.logger.Info("catalog_watch_started",
		slog.String("path", abs),
		slog.String("mode", w.Mode()),
		slog.Duration("debounce", w.opts.Debounce))

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-deb.Output():
			if !ok {
				return nil
			}
			w.runSync(ctx, abs)
		}
	}
}

func (w *Watcher) runSync(ctx context.Context, path string) {
	start := time.Now()
	err := w.sync(ctx)
	w.syncs.Add(1)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.logger.Error("catalog_resync_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Info("catalog_resynced",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))
}

func (w *Watcher) startFsnotify(abs string) (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return fsw, nil
}

// forwardFsnotify triggers the debouncer for events on the catalog file and
// closes fsw when ctx is done.
func (w *Watcher) forwardFsnotify(ctx context.Context, fsw *fsnotify.Watcher, abs string, deb *Debouncer) {
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("catalog_event",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			deb.Trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog_watch_error", slog.String("error", err.Error()))
		}
	}
}
