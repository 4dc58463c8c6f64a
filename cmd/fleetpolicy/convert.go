package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davidahmann/fleetpolicy/internal/convert"
	"github.com/davidahmann/fleetpolicy/internal/mapping"
	"github.com/davidahmann/fleetpolicy/internal/policy"
	"github.com/davidahmann/fleetpolicy/internal/rules"
)

func newConvertCmd(a *app) *cobra.Command {
	var projectRoot string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert every baseline into a policy document",
		Long: `Convert reads each baseline under paths.baselines_dir, loads its rules from
paths.rules_dir and writes <baseline>-fleet-policies.yml into paths.output_dir.

Examples:
  fleetpolicy convert --project-root ~/src/macos_security
  FLEETPOLICY_PATHS_PROJECT_ROOT=~/src/macos_security fleetpolicy convert`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			cfg := a.cfg
			if projectRoot != "" {
				cfg.Paths.ProjectRoot = projectRoot
				cfg.Paths.RulesDir = filepath.Join(projectRoot, "rules")
				cfg.Paths.BaselinesDir = filepath.Join(projectRoot, "baselines")
				if a.dir == "" {
					cfg.Paths.OutputDir = filepath.Join(projectRoot, "fleet")
				}
			}
			if err := cfg.ValidateConvert(); err != nil {
				return configError{err: err}
			}

			c := convert.New(
				rules.NewStore(cfg.Paths.RulesDir),
				policy.NewAssembler(mapping.DefaultTable()),
				convert.Config{
					BaselinesDir: cfg.Paths.BaselinesDir,
					OutputDir:    cfg.Paths.OutputDir,
					Logger:       a.log,
				},
			)
			sum, err := c.ConvertAll(cmd.Context())
			if err != nil {
				return err
			}

			for _, b := range sum.Baselines {
				if b.Err != nil {
					fmt.Fprintf(a.stderr, "error %s: %v\n", b.Name, b.Err)
					continue
				}
				fmt.Fprintf(a.stdout, "converted %s: policies=%d specific=%d skipped_rules=%d output=%s\n",
					b.Name, b.Policies, b.Specific, b.Skipped, b.Output)
			}
			fmt.Fprintf(a.stdout, "total: baselines=%d failed=%d policies=%d output_dir=%s\n",
				len(sum.Baselines), sum.Failed, sum.Policies, cfg.Paths.OutputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectRoot, "project-root", "", "mSCP checkout (overrides paths.project_root)")
	return cmd
}
