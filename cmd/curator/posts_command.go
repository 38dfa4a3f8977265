package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/store"
)

func newPostsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Show recently published posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			return ctx.withStore(func(st *store.Store) error {
				posts, err := st.RecentPosts(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, posts)
				}
				rows := make([][]string, 0, len(posts))
				for _, post := range posts {
					rows = append(rows, []string{
						post.PublishedAt.Local().Format(time.DateTime),
						string(post.SourceKind),
						post.Title,
						post.URL,
						post.Backend,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Published", "Kind", "Title", "URL", "Backend"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of posts to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print posts as JSON")
	return cmd
}
