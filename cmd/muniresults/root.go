package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"muniresults/internal/config"
	"muniresults/internal/logging"
)

// commandContext carries state shared by every subcommand of one invocation.
type commandContext struct {
	configFlag string
	cfg        *config.Config
	logger     *zap.Logger
}

func (c *commandContext) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configFlag, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Verbose: cfg.Verbose, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	if cfg.FileUsed != "" {
		logger.Debug("configuration loaded", zap.String("file", cfg.FileUsed))
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	}
	return false
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "muniresults",
		Short: "Scrape municipal election results into a CSV or JSON table",
		Long: `muniresults walks the municipality catalog, downloads the first-round
results document of every municipality and writes one table with a row per
candidate.

Example:
  muniresults scrape --candidacy mayor --format csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ctx.logger != nil {
				_ = ctx.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (default muniresults.yaml)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("log-format", config.LogFormatJSON, "Log encoding: json or console")

	rootCmd.AddCommand(newScrapeCommand(ctx))
	rootCmd.AddCommand(newURLCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
