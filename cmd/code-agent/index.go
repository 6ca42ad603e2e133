package codeagent

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/code-agent/internal/fsops"
	"github.com/temirov/code-agent/internal/retrieval"
)

const indexSummaryFormat = "Indexed %d chunks from %d files into %s\n"

type indexCommandOptions struct {
	indexPath string
	noEmbed   bool
}

func newIndexCommand(app *application) *cobra.Command {
	options := &indexCommandOptions{}

	command := &cobra.Command{
		Use:   indexCommandUse,
		Short: indexCommandShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexCommand(cmd, app, *options, args[0])
		},
	}

	command.Flags().StringVar(&options.indexPath, indexFlagName, "", indexFlagUsage)
	command.Flags().BoolVar(&options.noEmbed, noEmbedFlagName, false, noEmbedFlagUsage)

	return command
}

func runIndexCommand(cmd *cobra.Command, app *application, options indexCommandOptions, directory string) error {
	indexPath, err := app.indexPath(options.indexPath)
	if err != nil {
		return err
	}
	index, err := retrieval.OpenIndex(indexPath)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	indexer := retrieval.Indexer{
		FS:          fsops.NewOS(),
		Index:       index,
		Extensions:  app.root.Retrieval.Extensions,
		ChunkSize:   app.root.Retrieval.ChunkSize,
		Concurrency: app.root.Retrieval.Concurrency,
		Logger:      app.logger,
	}
	if embedder := app.embedder(); embedder != nil && !options.noEmbed {
		indexer.Embedder = embedder
		indexer.EmbeddingModel = app.root.Retrieval.EmbeddingModel
	}
	report, err := indexer.Build(cmd.Context(), directory)
	if err != nil {
		return fmt.Errorf("index %s: %w", directory, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), indexSummaryFormat, report.Chunks, report.Files, indexPath)
	return err
}
