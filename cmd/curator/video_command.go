package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/daemonrun"
	"curator/internal/sources"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "video <url>",
		Short: "Summarize and publish a single YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if !sources.IsVideoURL(target) {
				return fmt.Errorf("not a YouTube video URL: %s", target)
			}
			return ctx.withRuntime(false, func(rt *daemonrun.Runtime) error {
				url, err := rt.Processor.ProcessVideoURL(cmd.Context(), target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary posted: %s\n", url)
				return nil
			})
		},
	}
}
