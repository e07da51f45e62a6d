package entrystore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationVersions lists embedded migrations by version ("0001_init"),
// in apply order.
func migrationVersions() ([]string, error) {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	versions := make([]string, len(files))
	for i, f := range files {
		versions[i] = strings.TrimSuffix(path.Base(f), ".sql")
	}
	sort.Strings(versions)
	return versions, nil
}

// applyMigrations brings the schema up to date. A version is applied at
// most once per database; 0002_clean_null_entries relies on that to run
// its cleanup a single time.
func (s *Store) applyMigrations(ctx context.Context) error {
	const ensure = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, ensure); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	done, err := s.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	applied := make(map[string]bool, len(done))
	for _, v := range done {
		applied[v] = true
	}

	versions, err := migrationVersions()
	if err != nil {
		return err
	}
	for _, version := range versions {
		if applied[version] {
			continue
		}
		if err := s.applyMigration(ctx, version); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs one version and records it in the same transaction.
func (s *Store) applyMigration(ctx context.Context, version string) error {
	body, err := migrationFS.ReadFile("migrations/" + version + ".sql")
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("migration %s: %w", version, err)
	}
	stamp := s.now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, version, stamp); err != nil {
		return fmt.Errorf("migration %s: record: %w", version, err)
	}
	return tx.Commit()
}

// AppliedMigrations lists recorded migration versions in order.
func (s *Store) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
