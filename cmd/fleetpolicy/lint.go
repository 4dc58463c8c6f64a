package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidahmann/fleetpolicy/internal/crypto"
	"github.com/davidahmann/fleetpolicy/internal/grade"
	"github.com/davidahmann/fleetpolicy/internal/policy"
	"github.com/davidahmann/fleetpolicy/internal/query"
)

func newLintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [PATH...]",
		Short: "Check that every query prepares against the agent schema",
		Long: `Lint parses each policy document and prepares every query against an empty
copy of the agent schema. It reports syntax errors and unknown tables or
columns; it cannot tell whether a query is a correct compliance check.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			runner, err := a.newRunner()
			if err != nil {
				return configError{err: err}
			}
			files, err := runner.Resolve(a.paths(args))
			if err != nil {
				return err
			}

			v, err := query.NewValidator()
			if err != nil {
				return err
			}
			defer v.Close()

			failed := 0
			for _, path := range files {
				loaded, err := policy.LoadDocument(path)
				if err != nil {
					fmt.Fprintln(a.stderr, err.Error())
					failed++
					continue
				}

				var specific, marked, invalid int
				distinct := make(map[string]int)
				for i, e := range loaded.Document.Entries {
					if err := v.Validate(cmd.Context(), e.Query()); err != nil {
						fmt.Fprintf(a.stderr, "%s: entry %d %q: %v\n", path, i, e.Policy.Spec.Name, err)
						invalid++
					}
					if query.IsSpecific(e.Query()) {
						specific++
						distinct[crypto.DigestText(query.Normalize(e.Query()))]++
					}
					if e.Marked() {
						marked++
					}
				}
				shared := 0
				for _, n := range distinct {
					if n > 1 {
						shared += n
					}
				}
				g := grade.Evaluate(grade.Input{
					Entries:  len(loaded.Document.Entries),
					Specific: specific,
					Marked:   marked,
					Invalid:  invalid,
					Shared:   shared,
				})
				if invalid > 0 {
					failed++
				}
				fmt.Fprintf(a.stdout, "%s: grade=%s entries=%d specific=%d generic=%d marked=%d shared=%d invalid=%d hash=%s\n",
					path, g.Grade, len(loaded.Document.Entries), specific, len(loaded.Document.Entries)-specific,
					marked, shared, invalid, loaded.Hash)
				if len(g.Reasons) > 0 {
					a.log.Info("document graded", zap.String("path", path), zap.String("grade", g.Grade), zap.Strings("reasons", g.Reasons))
				}
			}
			if failed > 0 {
				return fmt.Errorf("lint failed for %d of %d documents", failed, len(files))
			}
			return nil
		},
	}
}
