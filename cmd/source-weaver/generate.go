package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"source-weaver/internal/common"
	"source-weaver/internal/config"
	"source-weaver/internal/diagnostic"
	"source-weaver/internal/pipeline"
	"source-weaver/internal/watch"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render templates and merge inline blocks (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Regenerate whenever sources or templates change")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	report, err := generateOnce(cmd.Context(), cmd.ErrOrStderr(), cfg, opts)
	if !opts.watch {
		return err
	}

	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}

	w, err := watch.New(watchDirs(cfg), watch.Options{Logger: opts.sugar()})
	if err != nil {
		return err
	}

	defer w.Close()

	if report != nil {
		w.Ignore(report.Outputs...)
	}

	opts.sugar().Infow("watching for changes", "dir", cfg.Dir)

	return w.Run(cmd.Context(), func(ctx context.Context) error {
		report, err := generateOnce(ctx, cmd.ErrOrStderr(), cfg, opts)
		if report != nil {
			w.Ignore(report.Outputs...)
		}

		return err
	})
}

func generateOnce(ctx context.Context, stderr io.Writer, cfg *config.Config, opts *rootOptions) (*pipeline.Report, error) {
	report, err := pipeline.New(cfg, opts.sugar()).Run(ctx)
	if report != nil {
		printDiagnostics(stderr, report.Diagnostics, opts.verbose)
	}

	return report, err
}

// watchDirs returns the project directory plus template directories outside it.
func watchDirs(cfg *config.Config) []string {
	dirs := []string{filepath.Clean(cfg.Dir)}

	for _, p := range cfg.Paths(cfg.Templates) {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			p = filepath.Dir(p)
		}

		dirs = append(dirs, filepath.Clean(p))
	}

	return common.Unique(dirs)
}

func printDiagnostics(w io.Writer, diags diagnostic.Diagnostics, verbose bool) {
	for _, d := range diags.All() {
		if d.Severity == diagnostic.SeverityInfo && !verbose {
			continue
		}

		fmt.Fprintf(w, "%s: %s\n", d.Severity, d)
	}
}
