package main

import (
	"github.com/spf13/cobra"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingest cycle over the configured sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			application, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			res, err := application.Ingest(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}
