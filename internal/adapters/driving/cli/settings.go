package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, the query rewriter and
retrieval defaults.

Settings are stored in ~/.clause/config.toml. Chunking, session and retrieval
values can be edited there directly.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index and search chunks.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure query rewriter",
	Long: `Configure the language model that reformulates questions before search.
Choose "Disabled" to search with the question as written.`,
	RunE: runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayAPIKey(settings.Embedding.APIKey))
	}
	if dim := settings.Embedding.ResolvedDimensions(); dim > 0 {
		cmd.Printf("  Dimensions: %d\n", dim)
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[Query Rewriter]")
	if settings.LLM.Provider == "" {
		cmd.Println("  Provider: disabled")
	} else {
		cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
		cmd.Printf("  Model: %s\n", settings.LLM.Model)
		if settings.LLM.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
		}
		if settings.LLM.Provider.RequiresAPIKey() {
			cmd.Printf("  API Key: %s\n", displayAPIKey(settings.LLM.APIKey))
		}
		cmd.Printf("  Max queries: %d\n", settings.LLM.MaxQueries)
		cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	}
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Strategy: %s\n", settings.Chunker.Strategy)
	cmd.Printf("  Chunk size: %d\n", settings.Chunker.ChunkSize)
	cmd.Printf("  Chunk overlap: %d\n", settings.Chunker.ChunkOverlap)
	cmd.Printf("  Min words: %d\n", settings.Chunker.MinWords)
	cmd.Println()

	cmd.Println("[Session]")
	cmd.Printf("  TTL: %s\n", settings.Session.TTL)
	cmd.Printf("  Cleanup interval: %s\n", settings.Session.CleanupInterval)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Dynamic K: %t\n", settings.Retrieval.DynamicK)
	cmd.Printf("  Threshold: %.2f\n", settings.Retrieval.Threshold)
	cmd.Printf("  Provider timeout: %s\n", settings.Retrieval.ProviderTimeout)
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("%s %v\n", warnStyle("Warning:"), err)
		cmd.Println("Run 'clause settings embedding' or 'clause settings llm' to fix configuration issues.")
	} else {
		cmd.Println(okStyle("Configuration is valid."))
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if _, err := requireSettings(); err != nil {
		return err
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if _, err := requireSettings(); err != nil {
		return err
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	model := promptModel(cmd, reader, domain.DefaultEmbeddingModels()[selectedProvider])
	apiKey := promptAPIKey(cmd, reader, selectedProvider)

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("%s %v\n", errStyle("FAILED:"), err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println(okStyle("OK"))

	cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Query Rewriter")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Printf("  %d. Disabled\n", len(providers)+1)
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers)+1, 1)

	if idx == len(providers)+1 {
		if err := settingsService.SetLLMProvider("", "", ""); err != nil {
			return fmt.Errorf("failed to disable query rewriter: %w", err)
		}
		cmd.Println("Query rewriting disabled.")
		return nil
	}
	selectedProvider := providers[idx-1]

	model := promptModel(cmd, reader, domain.DefaultLLMModels()[selectedProvider])
	apiKey := promptAPIKey(cmd, reader, selectedProvider)

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure query rewriter: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("%s %v\n", errStyle("FAILED:"), err)
		return fmt.Errorf("query rewriter validation failed: %w", err)
	}
	cmd.Println(okStyle("OK"))

	cmd.Printf("Query rewriter configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

func promptModel(cmd *cobra.Command, reader *bufio.Reader, defaultModel string) string {
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	if model := readLine(reader); model != "" {
		return model
	}
	return defaultModel
}

// promptAPIKey asks for a key when the provider needs one. An empty answer
// leaves the key to the OPENAI_API_KEY environment variable.
func promptAPIKey(cmd *cobra.Command, reader *bufio.Reader, provider domain.AIProvider) string {
	if !provider.RequiresAPIKey() {
		return ""
	}
	cmd.Print("Enter API key (blank to use OPENAI_API_KEY): ")
	key := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	return key
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to
// a plain line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func displayAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
