// Package ledger keeps a history of repair runs: one record per run and one
// per document the run touched.
package ledger

import "errors"

var ErrDuplicateRun = errors.New("run already recorded")

type Store interface {
	WithTx(fn func(Tx) error) error

	GetRun(runID string) (RunRecord, bool)
	// ListRuns returns the most recent runs first.
	ListRuns(limit int) ([]RunRecord, error)
	ListFiles(runID string) ([]FileRecord, error)
}

type Tx interface {
	PutRun(run RunRecord) error
	PutFile(file FileRecord) error
}

// Counts mirrors the per-pass tallies of the repair pipeline.
type Counts struct {
	Annotated  int
	Resolved   int
	Unresolved int
	Remapped   int
	Pending    int
}

type RunRecord struct {
	RunID     string
	Mode      string
	StartedAt string
	Files     int
	Skipped   int
	Counts
}

type FileRecord struct {
	RunID   string
	Path    string
	Hash    string
	Written bool
	Error   *string
	Counts
}

// Record stores a run and its files in one transaction.
func Record(s Store, run RunRecord, files []FileRecord) error {
	return s.WithTx(func(tx Tx) error {
		if err := tx.PutRun(run); err != nil {
			return err
		}
		for _, f := range files {
			f.RunID = run.RunID
			if err := tx.PutFile(f); err != nil {
				return err
			}
		}
		return nil
	})
}
