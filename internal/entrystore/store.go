package entrystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"foodlog/internal/config"
	"foodlog/internal/ledger"
)

// DefaultCapacity is the number of entries kept before the oldest are evicted.
const DefaultCapacity = 2000

const timeLayout = time.RFC3339Nano

// ErrNotFound is returned when no entry carries the requested meal id.
var ErrNotFound = errors.New("entry not found")

// Entry is one recorded meal with its raw estimator payload.
type Entry struct {
	Seq        int64
	RecordedAt time.Time
	Meal       ledger.MealEntry
	Payload    json.RawMessage
}

// Store persists recorded meal entries in SQLite.
type Store struct {
	db       *sql.DB
	path     string
	capacity int
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithCapacity overrides the eviction capacity.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the clock used for recorded_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the entry database under cfg's state directory with the
// configured capacity.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.DatabasePath(), WithCapacity(cfg.Ledger.EntryCapacity))
}

// sqlitePragmas are applied by the driver to every new connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
}

func dataSource(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// OpenPath opens the database at path, creating its directory, and applies
// pending migrations.
func OpenPath(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	db, err := sql.Open("sqlite", dataSource(path))
	if err != nil {
		return nil, fmt.Errorf("open entry db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open entry db %s: %w", path, err)
	}

	s := &Store{db: db, path: path, capacity: DefaultCapacity, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Append records entries and evicts the oldest rows beyond capacity, all in
// one transaction.
func (s *Store) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (`+insertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert entry: %w", err)
	}
	defer stmt.Close()

	recorded := s.now().UTC().Format(timeLayout)
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, entryArgs(e, recorded)...); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Meal.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM entries WHERE seq NOT IN (SELECT seq FROM entries ORDER BY seq DESC LIMIT ?)",
		s.capacity,
	); err != nil {
		return fmt.Errorf("evict entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries ORDER BY seq DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ListByDate returns the entries eaten on day (YYYY-MM-DD), oldest first.
func (s *Store) ListByDate(ctx context.Context, day string) ([]Entry, error) {
	return s.query(ctx, "SELECT "+entryColumns+" FROM entries WHERE day = ? ORDER BY eaten_at, seq", day)
}

// Get fetches the latest entry recorded for mealID.
func (s *Store) Get(ctx context.Context, mealID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE meal_id = ? ORDER BY seq DESC LIMIT 1", mealID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", mealID, err)
	}
	return entry, nil
}

// Delete removes every entry recorded for mealID and reports whether any existed.
func (s *Store) Delete(ctx context.Context, mealID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE meal_id = ?", mealID)
	if err != nil {
		return false, fmt.Errorf("delete entry %s: %w", mealID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// CleanupEmpty removes entries that carry no macro value at all.
func (s *Store) CleanupEmpty(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries
        WHERE kcal_100 IS NULL AND protein_100 IS NULL AND fat_100 IS NULL AND carbs_100 IS NULL
          AND kcal IS NULL AND protein IS NULL AND fat IS NULL AND carbs IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("cleanup empty entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SaveSession replaces the stored last-session payload.
func (s *Store) SaveSession(ctx context.Context, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return fmt.Errorf("save session: payload is not valid JSON")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO last_session (id, payload_json, updated_at) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET payload_json = excluded.payload_json, updated_at = excluded.updated_at`,
		string(payload), s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the last-session payload, if one was saved.
func (s *Store) LoadSession(ctx context.Context) (json.RawMessage, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload_json FROM last_session WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	return json.RawMessage(payload), true, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}
