// Command clause is the session-scoped retrieval engine for contract review.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/clause/internal/adapters/driven/ai"
	"github.com/custodia-labs/clause/internal/adapters/driven/config/file"
	chunkmem "github.com/custodia-labs/clause/internal/adapters/driven/storage/memory"
	vecmem "github.com/custodia-labs/clause/internal/adapters/driven/vectorindex/memory"
	"github.com/custodia-labs/clause/internal/adapters/driving/cli"
	"github.com/custodia-labs/clause/internal/chunkers"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/core/services"
	"github.com/custodia-labs/clause/internal/normalisers"
)

// Set by the linker.
var version = "dev"

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cli.Configure(cli.Config{
		Version:      version,
		LoadSettings: loadSettings,
		BuildEngine:  buildEngine,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func loadSettings(path string) (driving.SettingsService, error) {
	var (
		store *file.ConfigStore
		err   error
	)
	if path == "" {
		store, err = file.NewConfigStore("")
	} else {
		store, err = file.NewConfigStoreAt(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), nil
}

func buildEngine(ctx context.Context, settings *domain.AppSettings) (*cli.Engine, error) {
	prompts, err := file.NewPromptStore("")
	if err != nil {
		return nil, err
	}

	aiServices, err := ai.Initialise(ctx, settings, prompts)
	if err != nil {
		return nil, err
	}

	chunker, err := chunkers.NewDefault(settings.Chunker, aiServices.EmbeddingService)
	if err != nil {
		aiServices.Close()
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	registry := services.NewSessionRegistry(
		settings.Session,
		vecmem.Factory(aiServices.EmbeddingService.Dimensions()),
		chunkmem.Factory(),
	)
	normaliserRegistry := normalisers.NewDefaultRegistry()

	return &cli.Engine{
		Sessions: registry,
		Ingestion: services.NewIngestionService(
			registry, chunker, aiServices.EmbeddingService, normaliserRegistry, settings.Retrieval,
		),
		Retrieval: services.NewRetrievalService(
			registry, aiServices.EmbeddingService, aiServices.QueryRewriter, settings.Retrieval,
		),
		Sweeper:     services.NewSweeper(registry, settings.Session),
		Chunker:     chunker,
		Normalisers: normaliserRegistry,
		Settings:    settings,
		Warnings:    aiServices.Warnings,
		Close: func() error {
			err := registry.Close()
			aiServices.Close()
			return err
		},
	}, nil
}
