package codeagent

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/temirov/code-agent/internal/history"
)

const (
	projectAddedFormat   = "Project %s registered at %s\n"
	projectRemovedFormat = "Project %s removed\n"
	projectRowFormat     = "%s\t%s\t%s\n"
	noProjectsMessage    = "No projects registered"
)

func newProjectCommand(app *application) *cobra.Command {
	command := &cobra.Command{
		Use:   projectCommandUse,
		Short: projectCommandShort,
	}
	command.AddCommand(
		&cobra.Command{
			Use:   projectAddCommandUse,
			Short: projectAddCommandShort,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withHistory(app, func(store *history.Store) error {
					rootPath, err := filepath.Abs(args[1])
					if err != nil {
						return fmt.Errorf("resolve project root: %w", err)
					}
					project, err := store.CreateProject(cmd.Context(), args[0], rootPath)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), projectAddedFormat, project.Name, project.RootPath)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   projectListCommandUse,
			Short: projectListCommandShort,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withHistory(app, func(store *history.Store) error {
					projects, err := store.ListProjects(cmd.Context())
					if err != nil {
						return err
					}
					if len(projects) == 0 {
						_, err = fmt.Fprintln(cmd.OutOrStdout(), noProjectsMessage)
						return err
					}
					writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					for _, project := range projects {
						if _, err := fmt.Fprintf(writer, projectRowFormat, project.Name, project.RootPath, project.CreatedAt.Local().Format(timestampLayout)); err != nil {
							return err
						}
					}
					return writer.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   projectRemoveCommandUse,
			Short: projectRemoveCommandShort,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withHistory(app, func(store *history.Store) error {
					if err := store.DeleteProject(cmd.Context(), args[0]); err != nil {
						return err
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), projectRemovedFormat, args[0])
					return err
				})
			},
		},
	)
	return command
}

func (app *application) openHistory() (*history.Store, error) {
	path, err := app.historyPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func withHistory(app *application, fn func(store *history.Store) error) error {
	store, err := app.openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}
