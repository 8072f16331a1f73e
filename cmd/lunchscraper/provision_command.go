package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lunchscraper/internal/logging"
	"lunchscraper/internal/storage"
)

func newProvisionCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the daily restaurant and menu folders for a date",
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
			if err := store.EnsureDailyFolders(date); err != nil {
				return err
			}
			layout := store.Layout()
			logger.Info("daily folders provisioned",
				logging.String(logging.FieldEventType, "folders_provisioned"),
				logging.String(logging.FieldTargetDate, date.String()),
				logging.String("restaurant_dir", layout.RestaurantDir(date)),
				logging.String("menu_dir", layout.MenuDir(date)),
			)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Provisioned folders for %s\n", date)
			fmt.Fprintf(out, "  restaurants: %s\n", layout.RestaurantDir(date))
			fmt.Fprintf(out, "  menus:       %s\n", layout.MenuDir(date))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Target date (YYYY-MM-DD); defaults to tomorrow")
	return cmd
}
