package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/sources"
	"curator/internal/store"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage YouTube channels, RSS feeds, and podcasts",
	}
	cmd.AddCommand(newSourcesListCommand(ctx))
	cmd.AddCommand(newAddChannelCommand(ctx))
	cmd.AddCommand(newAddFeedCommand(ctx, "add-feed", "Register an RSS feed", (*store.Store).AddFeed))
	cmd.AddCommand(newAddFeedCommand(ctx, "add-podcast", "Register a podcast feed", (*store.Store).AddPodcast))
	cmd.AddCommand(newSourcesRemoveCommand(ctx))
	return cmd
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				rows, err := sourceRows(cmd.Context(), st)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Kind", "Name", "URL", "Last Check"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}

func sourceRows(ctx context.Context, st *store.Store) ([][]string, error) {
	channels, err := st.Channels(ctx)
	if err != nil {
		return nil, err
	}
	feeds, err := st.Feeds(ctx)
	if err != nil {
		return nil, err
	}
	podcasts, err := st.Podcasts(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(channels)+len(feeds)+len(podcasts))
	for _, url := range channels {
		rows = append(rows, []string{"channel", sources.ChannelHandle(url), url, ""})
	}
	for _, feed := range feeds {
		rows = append(rows, []string{"feed", feed.Name, feed.URL, lastCheck(feed)})
	}
	for _, feed := range podcasts {
		rows = append(rows, []string{"podcast", feed.Name, feed.URL, lastCheck(feed)})
	}
	return rows, nil
}

func lastCheck(feed store.Feed) string {
	if !feed.Checked() {
		return "never"
	}
	return feed.LastCheck.Local().Format(time.DateTime)
}

func newAddChannelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-channel <url>",
		Short: "Register a YouTube channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if !sources.IsChannelURL(url) {
				return fmt.Errorf("not a YouTube channel URL: %s", url)
			}
			return ctx.withStore(func(st *store.Store) error {
				added, err := st.AddChannel(cmd.Context(), url)
				if err != nil {
					return err
				}
				reportAdded(cmd, "Channel", url, added)
				return nil
			})
		},
	}
}

type feedAdder func(*store.Store, context.Context, string, string) (bool, error)

func newAddFeedCommand(ctx *commandContext, use, short string, add feedAdder) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   use + " <url>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if !sources.IsValidURL(url) {
				return fmt.Errorf("invalid URL: %s", url)
			}
			label := strings.TrimSpace(name)
			if label == "" {
				label = sources.WebsiteName(url)
			}
			return ctx.withStore(func(st *store.Store) error {
				added, err := add(st, cmd.Context(), url, label)
				if err != nil {
					return err
				}
				reportAdded(cmd, "Feed", url, added)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the site name)")
	return cmd
}

func reportAdded(cmd *cobra.Command, kind, url string, added bool) {
	if added {
		fmt.Fprintf(cmd.OutOrStdout(), "%s added: %s\n", kind, url)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s already registered: %s\n", kind, url)
}

func newSourcesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "remove <channel|feed|podcast> <url>",
		Short:     "Remove a registered source",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"channel", "feed", "podcast"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := strings.ToLower(strings.TrimSpace(args[0]))
			url := strings.TrimSpace(args[1])
			return ctx.withStore(func(st *store.Store) error {
				var (
					removed bool
					err     error
				)
				switch kind {
				case "channel":
					removed, err = st.RemoveChannel(cmd.Context(), url)
				case "feed":
					removed, err = st.RemoveFeed(cmd.Context(), url)
				case "podcast":
					removed, err = st.RemovePodcast(cmd.Context(), url)
				default:
					return fmt.Errorf("unknown source kind %q (want channel, feed, or podcast)", kind)
				}
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("%s not found: %s", kind, url)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s\n", kind, url)
				return nil
			})
		},
	}
}
