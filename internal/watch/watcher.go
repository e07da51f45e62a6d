// Package watch reconciles the food log note after edits made outside
// foodlog.
//
// The watcher listens on the note's directory, because editors usually
// save by replacing the file. Bursts of events are debounced into one pass.
// Content that foodlog itself just wrote is recognised through the shared
// notes.Guard and skipped, so a reconcile never triggers another one.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"foodlog/internal/logging"
	"foodlog/internal/notes"
)

const defaultDebounce = 750 * time.Millisecond

// Reconciler runs one reconcile pass over the note.
type Reconciler interface {
	Reconcile(ctx context.Context) (notes.ReconcileResult, error)
}

// Watcher reacts to external changes of one note.
type Watcher struct {
	path       string
	guard      *notes.Guard
	reconciler Reconciler
	debounce   time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	passes int
	skips  int
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New builds a watcher for the note at path. guard must be the one the
// note's writer registers its writes with.
func New(path string, guard *notes.Guard, r Reconciler, opts ...Option) *Watcher {
	w := &Watcher{
		path:       filepath.Clean(path),
		guard:      guard,
		reconciler: r,
		debounce:   defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "watch").With(logging.String(logging.FieldNote, w.path))
	return w
}

// Stats reports how many reconcile passes ran and how many changes were
// skipped as own writes.
func (w *Watcher) Stats() (passes, skips int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.passes, w.skips
}

// Run blocks until ctx is cancelled or the event source fails.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching note",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.Duration("debounce", w.debounce),
	)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stopped"))
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if !w.relevant(ev) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			w.logger.Warn("watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"),
				logging.String(logging.FieldImpact, "some edits may be reconciled late"),
			)
		case <-timer.C:
			w.handle(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// handle runs after events settle.
func (w *Watcher) handle(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("failed to read note", logging.Error(err))
		}
		return
	}
	if w.guard.Consume(string(data)) {
		w.mu.Lock()
		w.skips++
		w.mu.Unlock()
		w.logger.Debug("skipping own write")
		return
	}

	ctx = logging.WithCorrelationID(ctx, fmt.Sprintf("watch-%d", time.Now().UnixMilli()))
	res, err := w.reconciler.Reconcile(ctx)
	w.mu.Lock()
	w.passes++
	w.mu.Unlock()
	logger := logging.WithContext(ctx, w.logger)
	switch {
	case errors.Is(err, notes.ErrStaleSnapshot):
		logger.Debug("note changed during reconcile; waiting for next event")
	case err != nil:
		logging.WarnWithContext(logger, "reconcile failed", "reconcile_failed", logging.Error(err))
	case res.Changed:
		logger.Info("note reconciled",
			logging.Int("stale_rows", len(res.Sync.StaleRows)),
			logging.Int("orphan_blocks", len(res.Sync.OrphanBlocks)),
			logging.Int("days", len(res.Days)),
		)
	}
}
