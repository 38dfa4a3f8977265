package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/content"
	"curator/internal/llm"
	"curator/internal/services/providers"
)

// Writer tasks read their input from a file argument ("-" for stdin); the
// prompt task sends the joined arguments as-is.
const (
	taskPrompt       = "prompt"
	taskSummary      = "summary"
	taskArticle      = "article"
	taskAudioSummary = "audio-summary"
	taskAudioArticle = "audio-article"
	taskHumanize     = "humanize"
	taskQueries      = "queries"
)

var generateTasks = []string{taskPrompt, taskSummary, taskArticle, taskAudioSummary, taskAudioArticle, taskHumanize, taskQueries}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		task     string
		title    string
		tier     string
		provider string
		noFall   bool
	)
	cmd := &cobra.Command{
		Use:   "generate <prompt | file>",
		Short: "Send an ad-hoc prompt or writer task through the dispatch service",
		Long: "Without --task the arguments are sent as a prompt. Writer tasks take one file:\n" +
			"a transcript or text file for summary, article, humanize and queries,\n" +
			"or an audio file for audio-summary and audio-article. Use - to read text from stdin.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task = strings.ToLower(strings.TrimSpace(task))
			if !slices.Contains(generateTasks, task) {
				return fmt.Errorf("--task must be one of %s, got %q", strings.Join(generateTasks, ", "), task)
			}
			switch strings.ToLower(tier) {
			case "heavy", "light":
			default:
				return fmt.Errorf("--tier must be heavy or light, got %q", tier)
			}
			if task != taskPrompt {
				if len(args) != 1 {
					return fmt.Errorf("%s takes exactly one file argument", task)
				}
				for _, name := range []string{"tier", "provider", "no-fallback"} {
					if cmd.Flags().Changed(name) {
						return fmt.Errorf("--%s only applies to the prompt task", name)
					}
				}
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			svc, err := providers.Build(cfg, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if task == taskPrompt {
				opts := []llm.CallOption{llm.WithTier(llm.ParseTier(tier))}
				if provider != "" {
					opts = append(opts, llm.WithProvider(provider))
				}
				if noFall {
					opts = append(opts, llm.WithoutFallback())
				}
				resp, err := svc.GenerateText(cmd.Context(), llm.Text(strings.Join(args, " ")), opts...)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, resp.Text)
				fmt.Fprintf(cmd.ErrOrStderr(), "(%s / %s)\n", resp.Provider, resp.Model)
				return nil
			}

			writer := content.NewWriter(svc, content.WithLogger(logger), content.WithSlugAttempts(cfg.LLM.SlugAttempts))
			return runWriterTask(cmd.Context(), writer, task, title, args[0], cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().StringVar(&task, "task", taskPrompt, "Task: "+strings.Join(generateTasks, ", "))
	cmd.Flags().StringVar(&title, "title", "", "Source title for summary and audio-article tasks")
	cmd.Flags().StringVar(&tier, "tier", "heavy", "Model tier: heavy or light")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name (defaults to llm.default_provider)")
	cmd.Flags().BoolVar(&noFall, "no-fallback", false, "Fail on rate limit instead of walking the model list")
	return cmd
}

func runWriterTask(ctx context.Context, writer *content.Writer, task, title, input string, stdin io.Reader, out io.Writer) error {
	switch task {
	case taskAudioSummary, taskAudioArticle:
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("audio file: %w", err)
		}
		var (
			postTitle, body string
			err             error
		)
		if task == taskAudioSummary {
			postTitle, body, err = writer.SummarizeAudio(ctx, input)
		} else {
			postTitle, body, err = writer.ArticleFromAudio(ctx, title, input)
		}
		if err != nil {
			return err
		}
		printTitled(out, postTitle, body)
		return nil
	}

	text, err := readTaskInput(input, stdin)
	if err != nil {
		return err
	}
	switch task {
	case taskSummary:
		postTitle, body, err := writer.SummarizeText(ctx, title, text)
		if err != nil {
			return err
		}
		printTitled(out, postTitle, body)
	case taskArticle:
		article, err := writer.GenerateArticle(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, article)
	case taskHumanize:
		fmt.Fprintln(out, writer.HumanizeContent(ctx, text))
	case taskQueries:
		for _, query := range writer.SearchQueries(ctx, title, text) {
			fmt.Fprintln(out, query)
		}
	}
	return nil
}

func readTaskInput(input string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("input %s is empty", input)
	}
	return text, nil
}

func printTitled(out io.Writer, title, body string) {
	fmt.Fprintln(out, title)
	fmt.Fprintln(out)
	fmt.Fprintln(out, body)
}
