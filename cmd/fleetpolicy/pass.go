package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidahmann/fleetpolicy/internal/ledger/sqlstore"
	"github.com/davidahmann/fleetpolicy/internal/mapping"
	"github.com/davidahmann/fleetpolicy/internal/repair"
)

type passSpec struct {
	mode    repair.Mode
	aliases []string
	short   string
	long    string
}

var (
	passDetect = passSpec{
		mode:    repair.ModeDetect,
		aliases: []string{"fix-queries"},
		short:   "Mark entries whose query is generic",
		long:    "Detect classifies every query and attaches a review marker to each generic, unmarked entry.",
	}
	passRepair = passSpec{
		mode:    repair.ModeRepair,
		aliases: []string{"fix-specific"},
		short:   "Rewrite marked entries into specific queries",
		long:    "Repair tries the shape rewrites, then the title table, on each marked entry. Entries that cannot be repaired keep their marker.",
	}
	passRemap = passSpec{
		mode:    repair.ModeRemap,
		aliases: []string{"comprehensive"},
		short:   "Replace every generic query with the title table's query",
		long:    "Remap assigns each generic entry the query of the first title rule its name matches, including the catch-all.",
	}
	passRun = passSpec{
		mode:  repair.ModeRun,
		short: "Detect then repair",
		long:  "Run marks generic entries and repairs them in one go.",
	}
)

func newPassCmd(a *app, spec passSpec) *cobra.Command {
	return &cobra.Command{
		Use:     string(spec.mode) + " [PATH...]",
		Aliases: spec.aliases,
		Short:   spec.short,
		Long:    spec.long,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			runner, err := a.newRunner()
			if err != nil {
				return configError{err: err}
			}

			started := time.Now()
			sum, err := runner.RunPaths(cmd.Context(), a.paths(args), spec.mode)
			if err != nil {
				return err
			}
			printSummary(a, sum)
			return a.record(spec.mode, started, sum)
		},
	}
}

func (a *app) newRunner() (*repair.Runner, error) {
	p := repair.New(mapping.DefaultTable(),
		repair.WithTitleFallback(a.cfg.Repair.TitleFallback),
		repair.WithLogger(a.log))
	return repair.NewRunner(p, repair.RunnerConfig{
		Pattern:      a.cfg.Output.Pattern,
		SkipSuffixes: a.cfg.Output.BackupSuffixes,
		Logger:       a.log,
	})
}

// record stores the run in the ledger when one is configured.
func (a *app) record(mode repair.Mode, started time.Time, sum repair.Summary) error {
	if a.cfg.Ledger.DSN == "" {
		return nil
	}
	store, err := sqlstore.OpenSQLite(a.cfg.Ledger.DSN)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()
	if err := repair.Record(store, mode, started, sum); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	a.log.Debug("recorded run", zap.String("run_id", sum.RunID))
	return nil
}

func (a *app) paths(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return []string{a.cfg.Paths.OutputDir}
}

func printSummary(a *app, sum repair.Summary) {
	for _, f := range sum.Files {
		if f.Err != nil {
			fmt.Fprintf(a.stderr, "error %s: %v\n", f.Path, f.Err)
			continue
		}
		printFile(a, f)
	}
	t := sum.Total
	fmt.Fprintf(a.stdout, "total: files=%d skipped=%d annotated=%d resolved=%d unresolved=%d remapped=%d pending=%d\n",
		len(sum.Files), sum.Skipped, t.Annotated, t.Resolved, t.Unresolved, t.Remapped, t.Pending)
	if t.Pending > 0 {
		fmt.Fprintf(a.stdout, "%d entries need manual review\n", t.Pending)
	}
}

func printFile(a *app, f repair.FileResult) {
	r := f.Report
	fmt.Fprintf(a.stdout, "%s: annotated=%d resolved=%d unresolved=%d remapped=%d pending=%d written=%t\n",
		f.Path, r.Annotated, r.Resolved, r.Unresolved, r.Remapped, r.Pending, f.Written)
}
