// Package cli provides the cobra command tree for the assistant.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/config/file"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driving"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// version is set via SetVersion before Execute.
var version = "dev"

// Services injected by the composition root. Commands nil-check what
// they use so partial wiring degrades to a clear error instead of a
// panic.
var (
	chatService     driving.ChatService
	documentService driving.DocumentService
	memoryService   driving.MemoryService
	conversations   driven.ConversationStore
	metricsRecorder driven.MetricsRecorder
	flagStore       *file.FlagStore
)

// verboseFlag toggles debug logging on stderr.
var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "On-device assistant with document and memory retrieval",
	Long: `A local-first assistant CLI. Conversations run against a local
model; replies are grounded in documents and personal memories you add,
retrieved by embedding similarity at each turn.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

// Services bundles everything the command tree consumes.
type Services struct {
	Chat          driving.ChatService
	Documents     driving.DocumentService
	Memories      driving.MemoryService
	Conversations driven.ConversationStore
	Metrics       driven.MetricsRecorder
	Flags         *file.FlagStore
}

// SetServices injects the wired services into the command tree.
func SetServices(s Services) {
	chatService = s.Chat
	documentService = s.Documents
	memoryService = s.Memories
	conversations = s.Conversations
	metricsRecorder = s.Metrics
	flagStore = s.Flags
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Print retrieval and generation details to stderr")
}
