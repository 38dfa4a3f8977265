package main

import (
	"github.com/spf13/cobra"

	"curator/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the curator daemon in the foreground",
		Long: "Run the scheduler, the Telegram bot, and the status API until interrupted.\n" +
			"Cycles run at the configured schedule.times and, unless disabled, once at start.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg)
		},
	}
}
