package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"workbench/internal/app"
	"workbench/internal/config"
	"workbench/internal/prompt"
)

type runOptions struct {
	debug       bool
	promptMode  string
	answersPath string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <session.yaml>",
		Short: "Replay a session script",
		Long: `Replays the steps of a session file against a fresh workbench.

Questions about unsaved documents are answered, in order of preference, by
the --answers file, the answers listed in the session itself, or the user.
On a terminal the user gets dialogs; otherwise one line per question.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.promptMode, "prompt", "", "Prompt mode: auto, tui or line (overrides configuration)")
	cmd.Flags().StringVar(&opts.answersPath, "answers", "", "YAML file with scripted answers")
	return cmd
}

func runSession(cmd *cobra.Command, opts *runOptions, path string) error {
	session, err := app.LoadSession(path)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	cfg := app.NewConfig(opts.debug, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg.PromptMode = config.PromptMode(opts.promptMode)
	if err := (config.WorkbenchConfig{Prompt: config.PromptConfig{Mode: cfg.PromptMode}}).Validate(); err != nil {
		return err
	}
	cfg.Answers = session.Answers
	if opts.answersPath != "" {
		if cfg.Answers, err = loadAnswers(opts.answersPath); err != nil {
			return err
		}
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx, session)
}

func loadAnswers(path string) ([]prompt.Answer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	var answers []prompt.Answer
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("failed to parse answers in %s: %w", path, err)
	}
	return answers, nil
}
