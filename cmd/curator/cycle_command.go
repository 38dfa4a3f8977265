package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/daemonrun"
	"curator/internal/pipeline"
)

func newCycleCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one processing cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(true, func(rt *daemonrun.Runtime) error {
				summary, err := rt.RunCycle(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, summary)
				}
				printCycleSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func printCycleSummary(out io.Writer, summary pipeline.CycleSummary) {
	fmt.Fprintf(out, "Cycle %s finished in %s\n", summary.RequestID, summary.Duration.Round(time.Second))
	fmt.Fprintln(out, renderTable(
		[]string{"Kind", "Published"},
		[][]string{
			{"Videos", fmt.Sprint(summary.Videos)},
			{"Articles", fmt.Sprint(summary.Articles)},
			{"Episodes", fmt.Sprint(summary.Episodes)},
			{"Failed", fmt.Sprint(summary.Failed)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))
}
