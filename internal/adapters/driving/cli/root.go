package cli

import (
	"github.com/spf13/cobra"

	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driving"
	"github.com/JIWOOK23/LocalMind/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Services are injected once by Execute before command dispatch.
var (
	indexService      driving.Indexer
	retrieveService   driving.Retriever
	chatService       driving.Chat
	chunkStore        driven.ChunkStore
	conversationStore driven.ConversationStore
	configStore       driven.ConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "localmind",
	Short: "Local document question answering",
	Long: `LocalMind indexes your local text documents and answers questions
about them, fully offline, using a local Ollama model for embedding
and generation. Conversations are recorded and searchable.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Dependencies aggregates everything the command tree needs. All
// fields are required except ConfigStore.
type Dependencies struct {
	Indexer           driving.Indexer
	Retriever         driving.Retriever
	Chat              driving.Chat
	ChunkStore        driven.ChunkStore
	ConversationStore driven.ConversationStore
	ConfigStore       driven.ConfigStore
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute injects the dependencies and runs the root command.
func Execute(deps Dependencies, v string) error {
	version = v
	indexService = deps.Indexer
	retrieveService = deps.Retriever
	chatService = deps.Chat
	chunkStore = deps.ChunkStore
	conversationStore = deps.ConversationStore
	configStore = deps.ConfigStore
	return rootCmd.Execute()
}
