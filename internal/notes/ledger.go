package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"foodlog/internal/ledger"
	"foodlog/internal/logging"
)

var (
	// ErrTargetNotFound is returned when the note does not exist. Nothing is written.
	ErrTargetNotFound = errors.New("note not found")
	// ErrStaleSnapshot is returned when the note changed between the snapshot
	// a transform worked on and the moment of writing.
	ErrStaleSnapshot = errors.New("note changed during update")
	// ErrLocked is returned when another writer holds the note lock past the timeout.
	ErrLocked = errors.New("note is locked by another writer")
)

const (
	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// Transform rewrites a note snapshot. Returning the input unchanged skips the write.
type Transform func(text string) (string, error)

// WriteResult describes one Update cycle.
type WriteResult struct {
	WriteID string
	Op      string
	Changed bool
	Text    string
}

// Ledger serializes access to one note file.
type Ledger struct {
	mu          sync.Mutex
	path        string
	storage     Storage
	guard       *Guard
	lock        *flock.Flock
	lockPath    string
	lockTimeout time.Duration
	logger      *slog.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithStorage replaces the filesystem backend.
func WithStorage(s Storage) Option {
	return func(l *Ledger) {
		if s != nil {
			l.storage = s
		}
	}
}

// WithGuard shares a write guard with a watcher.
func WithGuard(g *Guard) Option {
	return func(l *Ledger) { l.guard = g }
}

// WithLockPath places the writer lock file. It defaults to a hidden file
// beside the note.
func WithLockPath(path string) Option {
	return func(l *Ledger) {
		if path != "" {
			l.lockPath = path
		}
	}
}

// WithLockTimeout bounds how long Update waits for the writer lock.
func WithLockTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.lockTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New returns a Ledger for the note at path.
func New(path string, opts ...Option) *Ledger {
	l := &Ledger{
		path:        path,
		storage:     FS{},
		lockPath:    filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock"),
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.NewComponentLogger(l.logger, "notes").With(logging.String(logging.FieldNote, path))
	l.lock = flock.New(l.lockPath)
	return l
}

// Path returns the note location.
func (l *Ledger) Path() string {
	return l.path
}

// Guard returns the shared write guard, which may be nil.
func (l *Ledger) Guard() *Guard {
	return l.guard
}

// Read returns the current note text.
func (l *Ledger) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.read()
}

func (l *Ledger) read() (string, error) {
	exists, err := l.storage.Exists(l.path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrTargetNotFound, l.path)
	}
	text, err := l.storage.Read(l.path)
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}
	return text, nil
}

// Update runs one read → transform → write cycle under the writer lock.
// The note is re-read before writing; if it no longer matches the snapshot
// fn saw, ErrStaleSnapshot is returned and nothing is written.
func (l *Ledger) Update(ctx context.Context, op string, fn Transform) (WriteResult, error) {
	res := WriteResult{WriteID: uuid.NewString(), Op: op}
	ctx = logging.WithWriteID(ctx, res.WriteID)
	logger := logging.WithContext(ctx, l.logger).With(logging.String("op", op))

	if _, err := l.read(); err != nil {
		return res, err
	}
	unlock, err := l.acquire(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	before, err := l.read()
	if err != nil {
		return res, err
	}
	after, err := fn(before)
	if err != nil {
		return res, err
	}
	res.Text = after
	if after == before {
		logger.Debug("note unchanged")
		return res, nil
	}

	current, err := l.read()
	if err != nil {
		return res, err
	}
	if current != before {
		logging.WarnWithContext(logger, "note changed during update; write skipped", "stale_snapshot",
			logging.String(logging.FieldErrorHint, "retry the command"),
		)
		res.Text = current
		return res, ErrStaleSnapshot
	}

	l.guard.Register(after)
	if err := l.storage.Write(l.path, after); err != nil {
		l.guard.Forget(after)
		return res, fmt.Errorf("write note: %w", err)
	}
	res.Changed = true
	logger.Info("note updated", logging.Int("bytes", len(after)))
	return res, nil
}

// Create writes content only when the note does not exist yet.
func (l *Ledger) Create(ctx context.Context, content string) (bool, error) {
	if err := l.storage.MkdirAll(filepath.Dir(l.path)); err != nil {
		return false, fmt.Errorf("create note directory: %w", err)
	}
	unlock, err := l.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	exists, err := l.storage.Exists(l.path)
	if err != nil || exists {
		return false, err
	}
	l.guard.Register(content)
	if err := l.storage.Write(l.path, content); err != nil {
		l.guard.Forget(content)
		return false, fmt.Errorf("write note: %w", err)
	}
	l.logger.Info("note created")
	return true, nil
}

// ReconcileResult reports what one reconcile pass did.
type ReconcileResult struct {
	WriteResult
	Sync ledger.SyncResult
	Days []ledger.DayTotals
}

// Reconcile runs table synchronization and daily aggregation over a single
// snapshot and writes once.
func (l *Ledger) Reconcile(ctx context.Context, agg ledger.Aggregator) (ReconcileResult, error) {
	var out ReconcileResult
	res, err := l.Update(ctx, "reconcile", func(text string) (string, error) {
		out.Sync = ledger.Sync(text)
		next, days, _ := agg.Apply(out.Sync.Text)
		out.Days = days
		return next, nil
	})
	out.WriteResult = res
	if err != nil {
		return out, err
	}
	logger := logging.WithContext(logging.WithWriteID(ctx, res.WriteID), l.logger)
	if len(out.Sync.StaleRows) > 0 || len(out.Sync.OrphanBlocks) > 0 {
		logger.Info("meals table synchronized",
			logging.Any("stale_rows", out.Sync.StaleRows),
			logging.Any("orphan_blocks", out.Sync.OrphanBlocks),
		)
	}
	if len(out.Sync.Unresolved) > 0 {
		logging.WarnWithContext(logger, "orphan meal markers could not be located", "orphan_unresolved",
			logging.Any("meal_ids", out.Sync.Unresolved),
			logging.String(logging.FieldErrorHint, "remove the markers by hand"),
			logging.String(logging.FieldImpact, "markers stay in the note"),
		)
	}
	return out, nil
}

// acquire takes the in-process mutex and then the cross-process file lock.
func (l *Ledger) acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()
	ok, err := l.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		l.mu.Unlock()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s", ErrLocked, l.lockPath)
		}
		return nil, fmt.Errorf("acquire note lock: %w", err)
	}
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrLocked, l.lockPath)
	}
	return func() {
		if err := l.lock.Unlock(); err != nil {
			l.logger.Warn("failed to release note lock", logging.Error(err))
		}
		l.mu.Unlock()
	}, nil
}
