package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/davidahmann/fleetpolicy/internal/ledger"
)

type Store struct {
	db *sql.DB
}

// OpenSQLite opens dsn with foreign keys enforced on every connection and
// applies the ledger migrations.
func OpenSQLite(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragma(dsn, "foreign_keys(1)"))
	if err != nil {
		return nil, err
	}
	// one writer; the CLI never needs more
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ledger.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func withPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) WithTx(fn func(ledger.Tx) error) error {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{})
	if err != nil {
		return err
	}
	wrapped := &Tx{tx: tx}
	if err := fn(wrapped); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const runColumns = `run_id, mode, started_at, files, skipped, annotated, resolved, unresolved, remapped, pending`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (ledger.RunRecord, error) {
	var r ledger.RunRecord
	err := row.Scan(&r.RunID, &r.Mode, &r.StartedAt, &r.Files, &r.Skipped,
		&r.Annotated, &r.Resolved, &r.Unresolved, &r.Remapped, &r.Pending)
	return r, err
}

func (s *Store) GetRun(runID string) (ledger.RunRecord, bool) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err != nil {
		return ledger.RunRecord{}, false
	}
	return r, true
}

func (s *Store) ListRuns(limit int) ([]ledger.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.RunRecord{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListFiles(runID string) ([]ledger.FileRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, path, hash, written, annotated, resolved, unresolved, remapped, pending, error
FROM run_files WHERE run_id = ? ORDER BY path ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.FileRecord{}
	for rows.Next() {
		var f ledger.FileRecord
		var written int
		if err := rows.Scan(&f.RunID, &f.Path, &f.Hash, &written,
			&f.Annotated, &f.Resolved, &f.Unresolved, &f.Remapped, &f.Pending, &f.Error); err != nil {
			return nil, err
		}
		f.Written = written != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) PutRun(r ledger.RunRecord) error {
	_, err := t.tx.Exec(`INSERT INTO runs(`+runColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Mode, r.StartedAt, r.Files, r.Skipped, r.Annotated, r.Resolved, r.Unresolved, r.Remapped, r.Pending)
	if err != nil && isUniqueViolation(err) {
		return ledger.ErrDuplicateRun
	}
	return err
}

func (t *Tx) PutFile(f ledger.FileRecord) error {
	_, err := t.tx.Exec(`INSERT INTO run_files(run_id, path, hash, written, annotated, resolved, unresolved, remapped, pending, error)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, path) DO UPDATE SET
  hash = excluded.hash,
  written = excluded.written,
  annotated = excluded.annotated,
  resolved = excluded.resolved,
  unresolved = excluded.unresolved,
  remapped = excluded.remapped,
  pending = excluded.pending,
  error = excluded.error`,
		f.RunID, f.Path, f.Hash, boolInt(f.Written), f.Annotated, f.Resolved, f.Unresolved, f.Remapped, f.Pending, f.Error)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var target interface{ Code() int }
	if errors.As(err, &target) {
		// SQLITE_CONSTRAINT_PRIMARYKEY and SQLITE_CONSTRAINT_UNIQUE
		return target.Code() == 1555 || target.Code() == 2067
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
