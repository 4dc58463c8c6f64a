package ledger

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/sqlite/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations/sqlite"

type migration struct {
	version string
	body    string
}

// Migrate brings the run history schema up to date. Each migration runs in
// its own transaction together with its schema_migrations row.
func Migrate(db *sql.DB) error {
	if db == nil {
		return errors.New("migrate: nil db")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	done, err := appliedVersions(db)
	if err != nil {
		return err
	}
	pending, err := loadMigrations(migrationsFS, migrationsDir)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if done[m.version] {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(m.body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", m.version, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)`,
		m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", m.version, err)
	}
	return tx.Commit()
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

// loadMigrations reads every .sql file in dir, ordered by file name.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		out = append(out, migration{
			version: strings.TrimSuffix(path.Base(name), ".sql"),
			body:    string(body),
		})
	}
	return out, nil
}
