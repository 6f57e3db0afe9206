package devserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fresnel-build/fresnel/pkg/stores"
	"github.com/fresnel-build/fresnel/pkg/telemetry"
)

// reloadDelay batches bursts of filesystem events (editors often write a
// file several times in quick succession) into a single reload.
const reloadDelay = 100 * time.Millisecond

// skipDirs are directory names never watched.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".fresnel":     true,
}

// Watcher watches the project tree, invalidates cached transforms for
// changed modules, and publishes batched reload notifications.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	store   stores.Store
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	reloads chan []string

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// NewWatcher creates a watcher for the project root.
func NewWatcher(root string, store stores.Store, tel *telemetry.Telemetry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		root:    filepath.Clean(root),
		watcher: fsw,
		store:   store,
		logger:  tel.Logger.NewComponentLogger("watcher"),
		metrics: tel.Metrics,
		reloads: make(chan []string, 16),
		pending: make(map[string]struct{}),
	}, nil
}

// Start adds the project tree to the watcher and begins processing
// events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watchTree(w.root); err != nil {
		return fmt.Errorf("failed to watch project tree: %w", err)
	}

	go w.processEvents(ctx)

	w.logger.WithField("root", w.root).Info("watching for file changes")
	return nil
}

// Reloads returns the channel of batched changed-module notifications.
// Each batch holds project-relative paths.
func (w *Watcher) Reloads() <-chan []string {
	return w.reloads
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// watchTree adds every directory under root to the watcher.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// processEvents handles filesystem events until the context is cancelled.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.metrics.RecordWatchEvent(event.Op.String())

	// New directories need to be added to the watch set.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDirs[filepath.Base(event.Name)] {
				_ = w.watchTree(event.Name)
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)

	w.logger.WithField("file", rel).WithField("op", event.Op.String()).Debug("file changed")

	if _, err := w.store.InvalidateTransforms(ctx, rel); err != nil {
		w.logger.WithError(err).WithField("file", rel).Warn("failed to invalidate cached transforms")
	}

	w.mu.Lock()
	w.pending[rel] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDelay, w.flushPending)
	w.mu.Unlock()
}

// flushPending publishes the batched changes as one reload.
func (w *Watcher) flushPending() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	w.metrics.RecordReload()
	w.logger.WithField("files", len(batch)).Info("triggering reload")

	select {
	case w.reloads <- batch:
	default:
		// A slow consumer drops the batch; the next change will retrigger.
	}
}
