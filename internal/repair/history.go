package repair

import (
	"time"

	"github.com/davidahmann/fleetpolicy/internal/ledger"
)

func counts(r Report) ledger.Counts {
	return ledger.Counts{
		Annotated:  r.Annotated,
		Resolved:   r.Resolved,
		Unresolved: r.Unresolved,
		Remapped:   r.Remapped,
		Pending:    r.Pending,
	}
}

// Record stores the summary of a run started at startedAt.
func Record(s ledger.Store, mode Mode, startedAt time.Time, sum Summary) error {
	run := ledger.RunRecord{
		RunID:     sum.RunID,
		Mode:      string(mode),
		StartedAt: startedAt.UTC().Format(time.RFC3339),
		Files:     len(sum.Files),
		Skipped:   sum.Skipped,
		Counts:    counts(sum.Total),
	}
	files := make([]ledger.FileRecord, 0, len(sum.Files))
	for _, f := range sum.Files {
		rec := ledger.FileRecord{
			Path:    f.Path,
			Hash:    f.Hash,
			Written: f.Written,
			Counts:  counts(f.Report),
		}
		if f.Err != nil {
			msg := f.Err.Error()
			rec.Error = &msg
		}
		files = append(files, rec)
	}
	return ledger.Record(s, run, files)
}
