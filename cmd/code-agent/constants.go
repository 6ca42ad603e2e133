package codeagent

const (
	rootCommandUse   = "code-agent"
	rootCommandShort = "Answer questions about a Django project or write code into it"

	configFlagName     = "config"
	configFlagUsage    = "Path to config.yaml (default: ./config.yaml, then ~/.code-agent/config.yaml)"
	verboseFlagName    = "verbose"
	verboseFlagUsage   = "Enable debug logging"
	workspaceFlagName  = "workspace"
	workspaceFlagUsage = "Workspace root directory (overrides workspace.root)"
	renderFlagName     = "render"
	renderFlagUsage    = "Render answers as terminal markdown"
	dryRunFlagName     = "dry-run"
	dryRunFlagUsage    = "Show the change as a diff without writing"
	modelFlagName      = "model"
	modelFlagUsage     = "Model name from models[] (overrides defaults.model)"
	attemptsFlagName   = "attempts"
	attemptsFlagUsage  = "Model calls per instruction when no code is detected (0 = use defaults)"
	projectFlagName    = "project"
	projectFlagUsage   = "Registered project whose root is the workspace; the transcript is saved"
	indexFlagName      = "index"
	indexFlagUsage     = "Index database path (overrides retrieval.index_path)"
	noEmbedFlagName    = "no-embed"
	noEmbedFlagUsage   = "Store chunks without embeddings (keyword retrieval only)"

	askCommandUse             = "ask INSTRUCTION"
	askCommandShort           = "Run one instruction against the workspace"
	chatCommandUse            = "chat"
	chatCommandShort          = "Interactive instruction loop; exit or quit ends it"
	indexCommandUse           = "index DIR"
	indexCommandShort         = "Chunk, embed and store documentation files for retrieval"
	projectCommandUse         = "project"
	projectCommandShort       = "Manage registered projects"
	projectAddCommandUse      = "add NAME ROOT"
	projectAddCommandShort    = "Register a project root under a name"
	projectListCommandUse     = "list"
	projectListCommandShort   = "List registered projects"
	projectRemoveCommandUse   = "remove NAME"
	projectRemoveCommandShort = "Remove a project and its transcript"
	historyCommandUse         = "history NAME"
	historyCommandShort       = "Print the chat transcript of a project"

	defaultWorkspaceRoot = "."
	historyDatabaseName  = "history.db"
	indexDatabaseName    = "index.db"
	chatPrompt           = "> "
	renderWordWrap       = 100
	timestampLayout      = "2006-01-02 15:04:05"
	consoleLoggingFormat = "console"
)

var chatExitWords = []string{"exit", "quit"}
