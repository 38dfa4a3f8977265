package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"curator/internal/store"
)

func newSubscribersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Inspect Telegram subscribers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subscribed chat IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				ids, err := st.Subscribers(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					rows = append(rows, []string{strconv.FormatInt(id, 10)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Chat ID"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	})
	return cmd
}
