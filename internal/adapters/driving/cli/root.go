// Package cli provides the cobra command tree for the clause binary.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	verbose    bool
	configPath string
)

// Engine holds the services used by commands that ingest and retrieve.
type Engine struct {
	Sessions    driving.SessionService
	Ingestion   driving.IngestionService
	Retrieval   driving.RetrievalService
	Sweeper     driving.Sweeper
	Chunker     driven.Chunker
	Normalisers driven.NormaliserRegistry
	Settings    *domain.AppSettings

	// Warnings are non-fatal startup issues, such as a disabled rewriter.
	Warnings []string

	// Close releases provider connections and sessions.
	Close func() error
}

// SettingsLoader opens the settings service backed by the config file at
// path. An empty path selects the default location.
type SettingsLoader func(path string) (driving.SettingsService, error)

// EngineBuilder creates the engine from validated settings.
type EngineBuilder func(ctx context.Context, settings *domain.AppSettings) (*Engine, error)

// Config wires the command tree to the application.
type Config struct {
	Version      string
	LoadSettings SettingsLoader
	BuildEngine  EngineBuilder
}

var errNoSettings = errors.New("settings service not configured")

var (
	loadSettings    SettingsLoader
	buildEngine     EngineBuilder
	settingsService driving.SettingsService
	engine          *Engine
)

var rootCmd = &cobra.Command{
	Use:   "clause",
	Short: "Session-scoped retrieval over contract documents",
	Long: `clause loads contract documents into short-lived in-memory sessions and
answers questions by returning the most relevant passages.

Documents are split into chunks, embedded and indexed per session. Queries
are reformulated by an optional language model, searched concurrently and
fused by best score.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeEngine()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.clause/config.toml)")
}

// Configure installs the application wiring.
func Configure(cfg Config) {
	if cfg.Version != "" {
		version = cfg.Version
	}
	loadSettings = cfg.LoadSettings
	buildEngine = cfg.BuildEngine
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// requireSettings returns the settings service, opening it on first use.
func requireSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if loadSettings == nil {
		return nil, errNoSettings
	}
	svc, err := loadSettings(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	settingsService = svc
	return svc, nil
}

// requireEngine returns the engine, building it on first use.
func requireEngine(cmd *cobra.Command) (*Engine, error) {
	if engine != nil {
		return engine, nil
	}
	if buildEngine == nil {
		return nil, errors.New("engine not configured")
	}

	svc, err := requireSettings()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if err := svc.Validate(); err != nil {
		return nil, fmt.Errorf("%w. Run 'clause settings' to review", err)
	}

	e, err := buildEngine(cmd.Context(), settings)
	if err != nil {
		return nil, err
	}
	for _, w := range e.Warnings {
		printWarning(cmd, w)
	}
	engine = e
	return e, nil
}

func closeEngine() error {
	if engine == nil || engine.Close == nil {
		engine = nil
		return nil
	}
	err := engine.Close()
	engine = nil
	return err
}
