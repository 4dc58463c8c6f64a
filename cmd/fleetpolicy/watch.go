package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidahmann/fleetpolicy/internal/repair"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		mode     string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Apply a pass to policy documents as they change",
		Long: `Watch keeps running until interrupted. Each time a document under DIR is
created or edited it applies the chosen pass to that document alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			runner, err := a.newRunner()
			if err != nil {
				return configError{err: err}
			}
			dir := a.cfg.Paths.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runner.Watch(ctx, dir, repair.Mode(mode), debounce, func(res repair.FileResult) {
				if res.Err != nil {
					fmt.Fprintf(a.stderr, "%s: %v\n", res.Path, res.Err)
					return
				}
				printFile(a, res)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(repair.ModeRun), "pass to apply: detect, repair, remap or run")
	cmd.Flags().DurationVar(&debounce, "debounce", repair.DefaultDebounce, "wait this long for more changes before a pass")
	return cmd
}
