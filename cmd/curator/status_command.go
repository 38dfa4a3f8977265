package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/daemon"
	"curator/internal/preflight"
	"curator/internal/services/providers"
	"curator/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipLLM bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency, and source status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			if daemon.Locked(cfg.LockPath()) {
				lines = append(lines, renderStatusLine("Daemon", statusOK, "running", colorize))
			} else {
				lines = append(lines, renderStatusLine("Daemon", statusInfo, "not running", colorize))
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			lines = append(lines, renderStatusLine("Database", statusInfo, cfg.Paths.Database, colorize))
			lines = append(lines, renderStatusLine("Schedule", statusInfo, strings.Join(cfg.Schedule.Times, ", "), colorize))
			lines = append(lines, renderStatusLine("Telegram bot", statusInfo, yesNo(cfg.Telegram.Token != ""), colorize))
			lines = append(lines, renderStatusLine("Status API", statusInfo, firstNonEmpty(cfg.API.Bind, "disabled"), colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				kind, detail := statusOK, dep.Command
				if !dep.Available {
					kind, detail = statusError, dep.Detail
					if dep.Optional {
						kind = statusWarn
					}
				}
				lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			var results []preflight.Result
			if skipLLM {
				results = []preflight.Result{
					preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
					preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
					preflight.CheckPublishing(cfg),
				}
			} else {
				logger, err := ctx.logger()
				if err != nil {
					return err
				}
				var pinger preflight.Pinger
				if svc, err := providers.Build(cfg, logger); err == nil {
					pinger = svc
				}
				results = preflight.RunAll(cmd.Context(), cfg, pinger)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Sources", colorize)...)
			err = ctx.withStore(func(st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				lines = append(lines, sourceStatusLines(stats, colorize)...)
				return nil
			})
			if err != nil {
				lines = append(lines, renderStatusLine("Store", statusError, err.Error(), colorize))
			}

			writeLines(out, lines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Skip the provider health checks")
	return cmd
}

func sourceStatusLines(stats store.Stats, colorize bool) []string {
	entries := []struct {
		label string
		count int
	}{
		{"Channels", stats.Channels},
		{"Videos seen", stats.Videos},
		{"RSS feeds", stats.Feeds},
		{"Podcasts", stats.Podcasts},
		{"Articles done", stats.ProcessedArticles},
		{"Episodes done", stats.ProcessedEpisodes},
		{"Subscribers", stats.Subscribers},
		{"Posts", stats.Posts},
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, renderStatusLine(e.label, statusInfo, fmt.Sprint(e.count), colorize))
	}
	return lines
}

func writeLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
