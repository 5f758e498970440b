package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	fileconfig "github.com/JIWOOK23/LocalMind/internal/adapters/driven/config/file"
	ollamaembed "github.com/JIWOOK23/LocalMind/internal/adapters/driven/embedding/ollama"
	ollamagen "github.com/JIWOOK23/LocalMind/internal/adapters/driven/generation/ollama"
	"github.com/JIWOOK23/LocalMind/internal/adapters/driven/storage/sqlite"
	"github.com/JIWOOK23/LocalMind/internal/adapters/driven/vector/flat"
	"github.com/JIWOOK23/LocalMind/internal/adapters/driving/cli"
	"github.com/JIWOOK23/LocalMind/internal/chunker"
	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/services"
	"github.com/JIWOOK23/LocalMind/internal/logger"
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
	// A missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	cfg, err := fileconfig.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	chunkStore := store.ChunkStore()
	conversationStore := store.ConversationStore()

	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = cfg.GetString("ollama.base_url")
	}

	embedder := ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           baseURL,
		Model:             cfg.GetString("ollama.embed_model"),
		Dimensions:        cfg.GetInt("ollama.embed_dimensions"),
		RequestsPerSecond: cfg.GetInt("ollama.embed_rps"),
	})
	defer embedder.Close()

	generator := ollamagen.NewGenerationService(ollamagen.Config{
		BaseURL: baseURL,
		Model:   cfg.GetString("ollama.chat_model"),
		Timeout: time.Duration(cfg.GetInt("ollama.chat_timeout_seconds")) * time.Second,
	})
	defer generator.Close()

	index := flat.New(embedder.Dimensions())
	defer index.Close()

	classifierOpts := []classifier.Option{}
	if triggers := cfg.GetStringMapSlice("classifier.triggers"); len(triggers) > 0 {
		classifierOpts = append(classifierOpts, classifier.WithTriggers(triggers))
	}
	classify := classifier.New(classifierOpts...)

	chunkerOpts := []chunker.Option{}
	if n := cfg.GetInt("chunker.max_chars"); n > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithMaxChars(n))
	}
	if n := cfg.GetInt("chunker.overlap"); n > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithOverlap(n))
	}
	chunk := chunker.New(chunkerOpts...)

	indexer := services.NewIndexService(chunkStore, index, embedder, chunk, classify)

	ctx := context.Background()
	snapshotPath := filepath.Join(filepath.Dir(store.Path()), "index.snapshot")
	if err := loadIndex(ctx, indexer, snapshotPath); err != nil {
		return err
	}
	defer func() {
		if err := indexer.Snapshot(snapshotPath); err != nil {
			logger.Warn("Failed to save index snapshot: %v", err)
		}
	}()

	retriever := services.NewRetriever(chunkStore, index, embedder, classify, indexer.Guard())

	registry := services.NewToolRegistry()
	registry.Register(services.NewSearchDocumentsTool(retriever))
	registry.Register(services.NewSearchChatHistoryTool(conversationStore))
	registry.Register(services.NewStatisticsTool(chunkStore, conversationStore))
	registry.Register(services.NewListCategoriesTool(chunkStore))
	registry.Register(services.NewExportChatTool(conversationStore, cfg.GetString("export.dir")))
	registry.Register(services.NewAnalyzeKeywordsTool(classify))

	orchestrator := services.NewOrchestrator(retriever, generator, conversationStore, registry, classify)

	return cli.Execute(cli.Dependencies{
		Indexer:           indexer,
		Retriever:         retriever,
		Chat:              orchestrator,
		ChunkStore:        chunkStore,
		ConversationStore: conversationStore,
		ConfigStore:       cfg,
	}, version)
}

// loadIndex restores the persisted snapshot when it is still in step
// with the store, and rebuilds from stored embeddings otherwise.
func loadIndex(ctx context.Context, indexer *services.IndexService, snapshotPath string) error {
	if _, err := os.Stat(snapshotPath); errors.Is(err, os.ErrNotExist) {
		return indexer.Rebuild(ctx)
	}

	if err := indexer.Restore(snapshotPath); err != nil {
		logger.Warn("Index snapshot rejected, rebuilding from store: %v", err)
		return indexer.Rebuild(ctx)
	}
	return nil
}
