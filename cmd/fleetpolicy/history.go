package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidahmann/fleetpolicy/internal/ledger/sqlstore"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded repair runs",
		Long: `History reads the run ledger named by ledger.dsn. With --run it lists the
documents that run touched.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if a.cfg.Ledger.DSN == "" {
				return configError{err: fmt.Errorf("ledger.dsn is required for history")}
			}
			store, err := sqlstore.OpenSQLite(a.cfg.Ledger.DSN)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			if runID != "" {
				if _, ok := store.GetRun(runID); !ok {
					return fmt.Errorf("run %s not found", runID)
				}
				files, err := store.ListFiles(runID)
				if err != nil {
					return err
				}
				for _, f := range files {
					status := "ok"
					if f.Error != nil {
						status = "error: " + *f.Error
					}
					fmt.Fprintf(a.stdout, "%s written=%t resolved=%d unresolved=%d pending=%d hash=%s %s\n",
						f.Path, f.Written, f.Resolved, f.Unresolved, f.Pending, f.Hash, status)
				}
				return nil
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(a.stdout, "%s %s mode=%s files=%d skipped=%d annotated=%d resolved=%d unresolved=%d remapped=%d pending=%d\n",
					r.StartedAt, r.RunID, r.Mode, r.Files, r.Skipped, r.Annotated, r.Resolved, r.Unresolved, r.Remapped, r.Pending)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "list the documents of one run")
	return cmd
}
