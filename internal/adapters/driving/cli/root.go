// Package cli contains the cobra commands that drive vigil.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil-cli/internal/adapters/driven/archive"
	"github.com/custodia-labs/vigil-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vigil-cli/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/vigil-cli/internal/adapters/driven/storage/sqlite"
	capecconn "github.com/custodia-labs/vigil-cli/internal/connectors/capec"
	githubconn "github.com/custodia-labs/vigil-cli/internal/connectors/github"
	mitreconn "github.com/custodia-labs/vigil-cli/internal/connectors/mitre"
	nvdconn "github.com/custodia-labs/vigil-cli/internal/connectors/nvd"
	pypiconn "github.com/custodia-labs/vigil-cli/internal/connectors/pypi"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driving"
	"github.com/custodia-labs/vigil-cli/internal/core/services"
	"github.com/custodia-labs/vigil-cli/internal/logger"
	"github.com/custodia-labs/vigil-cli/internal/specialists"
	capecspec "github.com/custodia-labs/vigil-cli/internal/specialists/capec"
	githubspec "github.com/custodia-labs/vigil-cli/internal/specialists/github"
	mitrespec "github.com/custodia-labs/vigil-cli/internal/specialists/mitre"
	nvdspec "github.com/custodia-labs/vigil-cli/internal/specialists/nvd"
	pypispec "github.com/custodia-labs/vigil-cli/internal/specialists/pypi"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

var verbose bool

// Package-level services, wired on first use. Tests replace them
// directly.
var (
	configStore        driven.ConfigStore
	store              *sqlite.Store
	retrievalService   driving.RetrievalService
	ingestOrchestrator driving.IngestOrchestrator
	correlationRunner  driving.CorrelationRunner
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Local threat-intelligence ingestion and correlation",
	Long: `Vigil ingests vulnerability intelligence from NVD, PyPI, GitHub
advisories and the MITRE ATT&CK and CAPEC catalogs into a local
knowledge store, then correlates it per package through a bounded
reasoning loop backed by a local Ollama model.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute wires the dependency graph and runs the root command. Tests
// bypass it by injecting services and driving rootCmd directly.
func Execute() error {
	if err := initServices(); err != nil {
		return err
	}
	return rootCmd.Execute()
}

// initServices wires the full dependency graph. Already-injected
// services are kept.
func initServices() error {
	if retrievalService != nil && ingestOrchestrator != nil && correlationRunner != nil {
		return nil
	}

	if configStore == nil {
		cfg, err := file.NewConfigStore("")
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		configStore = cfg
	}

	dataDir := configStore.GetString(file.KeyDataDir)

	if store == nil {
		st, err := sqlite.NewStore(dataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		store = st
	}

	rawArchive, err := archive.NewFileArchive(dataDir)
	if err != nil {
		return fmt.Errorf("open raw archive: %w", err)
	}
	traceSink, err := archive.NewJSONLTrace(dataDir)
	if err != nil {
		return fmt.Errorf("open trace sink: %w", err)
	}

	timeout := time.Duration(configStore.GetInt(file.KeyHTTPTimeoutSeconds)) * time.Second
	if timeout == 0 {
		timeout = file.DefaultHTTPTimeoutSeconds * time.Second
	}

	fetchers := []driven.Fetcher{
		nvdconn.NewFetcher(nvdconn.Config{
			APIKey:  file.Credential(configStore, file.KeyNVDAPIKey, "NVD_API_KEY"),
			Timeout: timeout,
		}),
		pypiconn.NewFetcher(pypiconn.Config{Timeout: timeout}),
		githubconn.NewFetcher(githubconn.Config{
			Token:   file.Credential(configStore, file.KeyGitHubToken, "GITHUB_TOKEN"),
			Timeout: timeout,
		}),
		mitreconn.NewFetcher(mitreconn.Config{
			OffsetKey:   file.KeyMITREOffset,
			ConfigStore: configStore,
			Timeout:     timeout,
		}),
		capecconn.NewFetcher(capecconn.Config{
			OffsetKey:   file.KeyCAPECOffset,
			ConfigStore: configStore,
			Timeout:     timeout,
		}),
	}

	registry := specialists.NewRegistry(
		nvdspec.NewSpecialist(),
		pypispec.NewSpecialist(),
		githubspec.NewSpecialist(),
		mitrespec.NewSpecialist(),
		capecspec.NewSpecialist(),
	)

	normalizer := services.NewNormalizer(store.ItemStore(), store.RejectedStore(), store.FetchLogStore())
	ingestOrchestrator = services.NewIngest(fetchers, registry, rawArchive, store.FetchLogStore(), normalizer)

	retrievalService = services.NewRetrieval(store.ItemStore())

	promptStore, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}
	reasoner := ollama.NewReasoner(ollama.Config{
		BaseURL: configStore.GetString(file.KeyOllamaBaseURL),
		Model:   configStore.GetString(file.KeyOllamaModel),
	})
	reasoner.SetPromptStore(promptStore)

	correlationRunner = services.NewCorrelation(
		retrievalService, reasoner, store.BridgeStore(), store.FetchLogStore(), traceSink)

	return nil
}
