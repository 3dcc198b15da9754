// Package main provides the CLI entrypoint for source-weaver.
//
// source-weaver is a template-driven source generator that:
//   - Extracts type declarations from Go packages or YAML manifests
//   - Composes primaries and extensions into one logical type each
//   - Renders user templates against the composed types
//   - Merges inline blocks back into annotated regions of existing files
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"source-weaver/internal/config"
	"source-weaver/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath       string
	verbose          bool
	jsonLogs         bool
	warningsAsErrors bool
	watch            bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "source-weaver",
		Short: "Generate source from templates over composed type declarations",
		Long: `source-weaver composes type declarations from Go packages and YAML
manifests, renders templates against them, and merges inline blocks into
marked regions of existing files.

Examples:
  source-weaver                      # generate using ./.weaver.yml
  source-weaver --watch              # regenerate on every change
  source-weaver inspect              # print the composed model as YAML
  source-weaver -c build/weaver.yml  # use another config file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.logger = logging.New(logging.Options{
				JSON:    opts.jsonLogs,
				Verbose: opts.verbose,
				Output:  cmd.ErrOrStderr(),
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: nearest "+config.DefaultFileName+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging and info diagnostics")
	flags.BoolVar(&opts.jsonLogs, "json-logs", false, "Emit structured JSON logs")
	flags.BoolVar(&opts.warningsAsErrors, "warnings-as-errors", false, "Fail the run when any warning is reported")
	root.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Regenerate whenever sources or templates change")

	root.AddCommand(newGenerateCmd(opts), newInspectCmd(opts), newVersionCmd())

	return root
}

func (o *rootOptions) sugar() *zap.SugaredLogger {
	if o.logger == nil {
		return logging.Nop()
	}

	return o.logger.Sugar()
}

// loadConfig reads the config named by --config, or the nearest
// DefaultFileName above the working directory.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.Find(".")
	}

	if path == "" {
		return nil, errors.WithHint(errors.Newf("no %s found", config.DefaultFileName),
			"create one in the project root or pass --config")
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.WarningsAsErrors = cfg.WarningsAsErrors || o.warningsAsErrors

	return cfg, nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)

	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintf(w, "hint: %s\n", hint)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd()
	err := root.ExecuteContext(ctx)

	stop()

	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
