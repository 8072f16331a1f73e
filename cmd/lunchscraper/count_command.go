package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lunchscraper/internal/logging"
	"lunchscraper/internal/storage"
)

func newCountCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the menu files stored for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, date, err := ctx.targetDate(dateFlag)
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store := storage.New(storage.NewLayout(cfg.Paths.DataDir, cfg.LockDir()), logger)
			count, err := store.CountMenuFiles(date)
			if err != nil {
				return err
			}
			logger.Debug("menu files counted",
				logging.String(logging.FieldTargetDate, date.String()),
				logging.Int("menu_files", count),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%d menu files for %s (%s)\n", count, date, store.Layout().MenuDir(date))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Target date (YYYY-MM-DD); defaults to tomorrow")
	return cmd
}
