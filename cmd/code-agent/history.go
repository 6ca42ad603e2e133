package codeagent

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/code-agent/internal/history"
)

const (
	historyEntryFormat = "[%s] %s:\n%s\n\n"
	emptyHistoryFormat = "No messages for project %s\n"
)

func newHistoryCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   historyCommandUse,
		Short: historyCommandShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(app, func(store *history.Store) error {
				project, err := store.FindProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				messages, err := store.Messages(cmd.Context(), project.ID)
				if err != nil {
					return err
				}
				output := cmd.OutOrStdout()
				if len(messages) == 0 {
					_, err = fmt.Fprintf(output, emptyHistoryFormat, project.Name)
					return err
				}
				for _, message := range messages {
					if _, err := fmt.Fprintf(output, historyEntryFormat, message.CreatedAt.Local().Format(timestampLayout), message.Sender, message.Message); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
