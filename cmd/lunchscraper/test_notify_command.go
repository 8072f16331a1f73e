package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lunchscraper/internal/logging"
	"lunchscraper/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Notifications.Topic) == "" {
				fmt.Fprintln(out, "Notifications disabled (set notifications.topic or NTFY_TOPIC)")
				return nil
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			svc := notifications.NewService(cfg, notifications.WithLogger(logger))
			if err := svc.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				logging.ErrorWithContext(logger, "test notification failed", "notification_test_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check notifications.ntfy_url, topic, and token"),
				)
				return fmt.Errorf("send test notification: %w", err)
			}
			logger.Info("test notification sent", logging.String(logging.FieldEventType, "notification_test"))
			fmt.Fprintf(out, "Test notification sent to %s/%s\n", strings.TrimRight(cfg.Notifications.NtfyURL, "/"), cfg.Notifications.Topic)
			return nil
		},
	}
}
