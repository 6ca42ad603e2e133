package codeagent

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/temirov/code-agent/internal/agent"
	"github.com/temirov/code-agent/internal/intent"
)

type askCommandOptions struct {
	workspaceRoot string
	modelName     string
	attempts      int
	render        bool
	dryRun        bool
}

func newAskCommand(app *application) *cobra.Command {
	options := &askCommandOptions{}

	command := &cobra.Command{
		Use:   askCommandUse,
		Short: askCommandShort,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAskCommand(cmd, app, *options, strings.Join(args, " "))
		},
	}

	command.Flags().StringVar(&options.workspaceRoot, workspaceFlagName, "", workspaceFlagUsage)
	command.Flags().StringVar(&options.modelName, modelFlagName, "", modelFlagUsage)
	command.Flags().IntVar(&options.attempts, attemptsFlagName, 0, attemptsFlagUsage)
	command.Flags().BoolVar(&options.render, renderFlagName, false, renderFlagUsage)
	addBoolChoiceFlag(command.Flags(), &options.dryRun, dryRunFlagName, dryRunFlagUsage)

	return command
}

func runAskCommand(cmd *cobra.Command, app *application, options askCommandOptions, instruction string) error {
	instance, err := app.newAgent(cmd.Context(), agentSettings{
		workspaceRoot: options.workspaceRoot,
		modelName:     options.modelName,
		attempts:      options.attempts,
		dryRun:        options.dryRun,
	})
	if err != nil {
		return err
	}
	outcome := instance.Handle(cmd.Context(), instruction)
	return writeOutcome(cmd.OutOrStdout(), outcome, options.render)
}

// writeOutcome prints the outcome text. With render set, the model text of a
// successful answer goes through glamour while the quoted file stays as is.
func writeOutcome(writer io.Writer, outcome agent.Outcome, render bool) error {
	text := outcome.Text
	if render && outcome.Err == nil && outcome.Mode == intent.ModeAnswer {
		rendered, renderErr := renderMarkdown(outcome.Raw)
		if renderErr == nil {
			text = agent.FormatAnswer(outcome, strings.Trim(rendered, "\n"))
		}
	}
	if _, err := fmt.Fprintln(writer, text); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func renderMarkdown(text string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWordWrap),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(text)
}
