// Command assistant is the on-device assistant CLI.
package main

import (
	"context"
	"fmt"
	"os"

	configfile "github.com/caldera-labs/assistant-cli/internal/adapters/driven/config/file"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/embedding"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/embedding/hash"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/embedding/ollama"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/inference/llamaserver"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/models"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/storage/sqlite"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driving/cli"
	"github.com/caldera-labs/assistant-cli/internal/chunker"
	"github.com/caldera-labs/assistant-cli/internal/core/services"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	flags, err := configfile.NewFlagStore("")
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	modelStore, err := models.NewStore(flags.String("model.dir", ""))
	if err != nil {
		return fmt.Errorf("opening model directory: %w", err)
	}
	defer modelStore.Close()

	// Semantic embeddings come from a local Ollama instance when one is
	// running; the deterministic hash embedder keeps retrieval working
	// without it.
	embedder := embedding.NewFallback(
		ollama.New(ollama.Config{
			BaseURL: flags.String("embedding.base_url", ""),
			Model:   flags.String("embedding.model", ""),
		}),
		hash.New(),
	)

	splitter := chunker.New()
	documents := services.NewContextService(store.DocumentStore(), embedder, splitter)
	memories := services.NewMemoryService(store.MemoryStore(), embedder)

	engine := llamaserver.New(llamaserver.Config{
		BaseURL: flags.String("engine.base_url", ""),
	})

	chat := services.NewChatService(
		store.ConversationStore(),
		engine,
		modelStore,
		flags,
		store.MetricsRecorder(),
		memories,
		documents,
	)
	defer chat.Close()

	// Best effort: pre-embed stored memories so the first turn doesn't
	// pay the full embedding cost.
	go func() {
		if err := memories.WarmCache(context.Background()); err != nil {
			logger.Warn("memory cache warmup: %v", err)
		}
	}()

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Chat:          chat,
		Documents:     documents,
		Memories:      memories,
		Conversations: store.ConversationStore(),
		Metrics:       store.MetricsRecorder(),
		Flags:         flags,
	})

	return cli.Execute()
}
