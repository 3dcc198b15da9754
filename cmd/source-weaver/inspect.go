package main

import (
	"github.com/spf13/cobra"

	"source-weaver/internal/pipeline"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the composed type model as YAML",
		Long: `Compose the configured declarations and print a YAML snapshot of the
resulting model, without rendering templates or touching any file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			m, diags, err := pipeline.New(cfg, opts.sugar()).Model(cmd.Context())
			printDiagnostics(cmd.ErrOrStderr(), diags, opts.verbose)

			if err != nil {
				return err
			}

			out, err := m.Snapshot().YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
}
