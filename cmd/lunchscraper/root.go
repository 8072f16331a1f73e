package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var logOutputFlag []string
	var verboseFlag bool

	ctx := newCommandContext(&configFlag)
	ctx.logLevel = &logLevelFlag
	ctx.logOutputs = &logOutputFlag
	ctx.verbose = &verboseFlag

	rootCmd := &cobra.Command{
		Use:           "lunchscraper",
		Short:         "Scrape restaurant listings and lunch menus for a delivery date",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSliceVar(&logOutputFlag, "log-output", nil, "Console log destinations (stdout, stderr, or a file path)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Shorthand for --log-level=debug")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newProvisionCommand(ctx))
	rootCmd.AddCommand(newCountCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newPreflightCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
