// Command fleetpolicy converts compliance baselines into fleet policy
// documents and repairs documents whose queries are still generic.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidahmann/fleetpolicy/internal/config"
	"github.com/davidahmann/fleetpolicy/internal/logging"
)

var version = "dev"

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

// usageError maps to exit code 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// configError maps to exit code 1 before any work starts.
type configError struct{ err error }

func (e configError) Error() string { return "config: " + e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}

	err := root.Execute()
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr, ue.msg)
		usage(stderr)
		return 2
	}
	fmt.Fprintln(stderr, err.Error())
	return 1
}

// app carries the global flags and the state built from them.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	dir        string
	logLevel   string
	logFormat  string

	cfg config.Config
	log *zap.Logger
}

func newRootCmd(stdout io.Writer, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "fleetpolicy",
		Short:         "Convert mSCP baselines to fleet policies and repair generic queries",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{msg: fmt.Sprintf("unknown command %q", args[0])}
			}
			return usageError{msg: "a command is required"}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = logging.Sync(a.log)
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", os.Getenv("FLEETPOLICY_CONFIG"), "path to a YAML config file")
	flags.StringVar(&a.dir, "dir", "", "policy document directory (overrides paths.output_dir)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		newConvertCmd(a),
		newPassCmd(a, passDetect),
		newPassCmd(a, passRepair),
		newPassCmd(a, passRemap),
		newPassCmd(a, passRun),
		newLintCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return configError{err: err}
	}
	if a.dir != "" {
		cfg.Paths.OutputDir = a.dir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return configError{err: err}
	}

	log, err := logging.New(cfg.Logging, a.stderr)
	if err != nil {
		return configError{err: err}
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{msg: fmt.Sprintf("%s takes no arguments", cmd.Name())}
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Fleet Policy CLI

Usage:
  fleetpolicy convert [--config FILE] [--dir OUTPUT_DIR]
  fleetpolicy detect [PATH...]     (alias fix-queries)
  fleetpolicy repair [PATH...]     (alias fix-specific)
  fleetpolicy remap [PATH...]      (alias comprehensive)
  fleetpolicy run [PATH...]
  fleetpolicy lint [PATH...]
  fleetpolicy history [--limit N] [--run RUN_ID]
  fleetpolicy watch [DIR] [--mode MODE] [--debounce D]

PATH is a policy document or a directory searched with output.pattern;
the default is paths.output_dir.
`)
}
