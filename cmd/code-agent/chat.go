package codeagent

import (
	"bufio"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/history"
)

type chatCommandOptions struct {
	projectName   string
	workspaceRoot string
	modelName     string
	render        bool
	dryRun        bool
}

func newChatCommand(app *application) *cobra.Command {
	options := &chatCommandOptions{}

	command := &cobra.Command{
		Use:   chatCommandUse,
		Short: chatCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatCommand(cmd, app, *options)
		},
	}

	command.Flags().StringVar(&options.projectName, projectFlagName, "", projectFlagUsage)
	command.Flags().StringVar(&options.workspaceRoot, workspaceFlagName, "", workspaceFlagUsage)
	command.Flags().StringVar(&options.modelName, modelFlagName, "", modelFlagUsage)
	command.Flags().BoolVar(&options.render, renderFlagName, false, renderFlagUsage)
	addBoolChoiceFlag(command.Flags(), &options.dryRun, dryRunFlagName, dryRunFlagUsage)

	return command
}

// transcript records a chat session for a project; the zero value records nothing.
type transcript struct {
	store     *history.Store
	projectID string
	logger    *zap.Logger
}

func (t transcript) record(ctx context.Context, sender, message string) {
	if t.store == nil {
		return
	}
	if _, err := t.store.AppendMessage(ctx, t.projectID, sender, message); err != nil {
		t.logger.Warn("chat message not saved", zap.String("sender", sender), zap.Error(err))
	}
}

func runChatCommand(cmd *cobra.Command, app *application, options chatCommandOptions) error {
	ctx := cmd.Context()
	settings := agentSettings{workspaceRoot: options.workspaceRoot, modelName: options.modelName, dryRun: options.dryRun}
	session := transcript{logger: app.logger}

	if strings.TrimSpace(options.projectName) != "" {
		store, err := app.openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		project, err := store.FindProject(ctx, options.projectName)
		if err != nil {
			return err
		}
		settings.workspaceRoot = project.RootPath
		session = transcript{store: store, projectID: project.ID, logger: app.logger}
	}

	instance, err := app.newAgent(ctx, settings)
	if err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if _, err := fmt.Fprint(output, chatPrompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			break
		}
		instruction := strings.TrimSpace(scanner.Text())
		if instruction == "" {
			continue
		}
		if slices.Contains(chatExitWords, strings.ToLower(instruction)) {
			break
		}
		outcome := instance.Handle(ctx, instruction)
		session.record(ctx, history.SenderUser, instruction)
		session.record(ctx, history.SenderAgent, outcome.Text)
		if err := writeOutcome(output, outcome, options.render); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read instruction: %w", err)
	}
	_, err = fmt.Fprintln(output)
	return err
}
