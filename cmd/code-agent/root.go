package codeagent

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/config"
)

// application carries state resolved once in PersistentPreRunE and shared by
// every subcommand.
type application struct {
	configPath string
	verbose    bool

	root          config.Root
	homeDirectory string
	logger        *zap.Logger
}

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	app := &application{logger: zap.NewNop()}

	command := &cobra.Command{
		Use:           rootCommandUse,
		Short:         rootCommandShort,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal; variables may come from the shell.
			_ = godotenv.Load()
			return app.initialize()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = app.logger.Sync()
		},
	}
	command.PersistentFlags().StringVar(&app.configPath, configFlagName, "", configFlagUsage)
	command.PersistentFlags().BoolVar(&app.verbose, verboseFlagName, false, verboseFlagUsage)

	command.AddCommand(
		newAskCommand(app),
		newChatCommand(app),
		newIndexCommand(app),
		newProjectCommand(app),
		newHistoryCommand(app),
	)
	return command
}

func (app *application) initialize() error {
	rootConfiguration, homeDirectory, err := loadRootConfiguration(app.configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(rootConfiguration.Logging, app.verbose)
	if err != nil {
		return err
	}
	app.root = rootConfiguration
	app.homeDirectory = homeDirectory
	app.logger = logger
	return nil
}
