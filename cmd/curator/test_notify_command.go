package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/daemonrun"
	"curator/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through every configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.NtfyTopic == "" && cfg.Notifications.NATSURL == "" && cfg.Telegram.Token == "" {
				return errors.New("no notification sink configured (set notifications.ntfy_topic, notifications.nats_url, or telegram.token)")
			}
			return ctx.withRuntime(false, func(rt *daemonrun.Runtime) error {
				if err := rt.Notifier.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}
}
