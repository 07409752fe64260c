package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"EthNews/internal/app"
	"EthNews/internal/config"
	"EthNews/internal/logging"
)

type rootOptions struct {
	configPath string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ethnews",
		Short: "Ethereum news ingest and dedupe service",
		Long: `ethnews polls Ethereum news feeds, keeps relevant entries, stores each
article once by its canonical link and serves a newest-first listing.

Example usage:
  ethnews serve                 # scheduler plus JSON API
  ethnews ingest                # run one cycle and print the result
  ethnews query --q staking     # print one page of stored articles`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newServeCmd(opts), newIngestCmd(opts), newQueryCmd(opts))
	return cmd
}

func (o *rootOptions) init() error {
	if o.configPath != "" {
		if err := os.Setenv(config.EnvConfigPath, o.configPath); err != nil {
			return err
		}
	}
	o.cfg = config.Load()
	if o.verbose {
		o.cfg.Logging.Level = "debug"
	}
	o.logger = logging.New(o.cfg.Logging.Level, o.cfg.Logging.Format)
	slog.SetDefault(o.logger)
	return nil
}

func (o *rootOptions) open(ctx context.Context) (*app.Application, error) {
	return app.New(ctx, o.cfg, o.logger)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
