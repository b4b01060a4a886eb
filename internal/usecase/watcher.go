package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the engine when another process rewrites the
// persisted store. Saves rename a temp file into place, so a create or
// write on the sidecar or index file marks a completed snapshot; the
// reload itself installs fully-loaded state under the engine lock, so
// in-flight searches never see a half-loaded store.
type Watcher struct {
	engine   *Engine
	path     string
	debounce time.Duration
	logger   *zap.Logger

	fsw  *fsnotify.Watcher
	stop chan struct{}
}

// NewWatcher watches the store files rooted at path (the same path
// passed to Save/Load).
func NewWatcher(engine *Engine, path string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		engine:   engine,
		path:     path,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. The parent
// directory is watched rather than the files themselves because saves
// replace the files by rename.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go w.run(ctx)
	return nil
}

// Stop ends watching and releases the underlying notifier.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
		_ = w.fsw.Close()
	}
}

func (w *Watcher) run(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	watched := map[string]struct{}{
		SidecarPath(w.path): {},
		IndexPath(w.path):   {},
	}

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if _, relevant := watched[event.Name]; !relevant {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			// Collapse the burst of events from one save into a
			// single reload.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload(ctx)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if err := w.engine.Load(ctx, w.path); err != nil {
		w.logger.Error("hot reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("store hot-reloaded", zap.String("path", w.path))
}
