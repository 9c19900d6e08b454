package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marcus/brand-panel/internal/config"
	"github.com/marcus/brand-panel/internal/fetch"
	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/metrics"
	"github.com/marcus/brand-panel/internal/observability"
	"github.com/marcus/brand-panel/internal/pipeline"
	"github.com/marcus/brand-panel/internal/store"
	"github.com/marcus/brand-panel/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full brand panel pipeline end-to-end",
	Long: `Orchestrates the entire panel process: brand research -> persona recruitment -> concurrent judging -> metrics -> report synthesis.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath     string
	runTargetURL      string
	runMarket         string
	runPersonaCount   int
	runAssetPaths     []string
	runAPIKey         string
	runDatabaseURL    string
	runMaxConcurrency int
	runUseBrowser     bool
	runVerbose        bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runTargetURL, "url", "u", "", "Brand website URL to research")
	runCommand.Flags().StringVarP(&runMarket, "market", "m", "", "Market/locale identifier (e.g. US, DE)")
	runCommand.Flags().IntVarP(&runPersonaCount, "personas", "p", 0, "Number of personas on the panel (1-5)")
	runCommand.Flags().StringArrayVarP(&runAssetPaths, "asset", "a", nil, "Creative asset file to judge (repeatable)")
	runCommand.Flags().IntVar(&runMaxConcurrency, "max-concurrency", 0, "Bound on concurrent judgment calls (0 = unbounded)")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA brand sites (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for artifact persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("url") {
		cfg.TargetURL = runTargetURL
	}
	if cmd.Flags().Changed("market") {
		cfg.Market = runMarket
	}
	if cmd.Flags().Changed("personas") {
		cfg.PersonaCount = runPersonaCount
	}
	if cmd.Flags().Changed("asset") {
		cfg.AssetPaths = runAssetPaths
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("max-concurrency") {
		cfg.MaxConcurrency = runMaxConcurrency
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Config{
		Market:       "US",
		PersonaCount: 3,
	})

	// Step 4: Validate required fields
	if cfg.TargetURL == "" {
		return fmt.Errorf("--url is required (via flag or config)")
	}
	if len(cfg.AssetPaths) == 0 {
		return fmt.Errorf("at least one --asset is required (via flag or config)")
	}

	// Step 5: API key handling
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	// Step 6: Database URL handling (optional)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	assets, err := loadAssets(cfg.AssetPaths)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	var artifactStore *store.Store
	if cfg.DatabaseURL != "" {
		artifactStore, err = store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: Failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without artifact persistence...\n")
		} else {
			defer artifactStore.Close()
		}
	}

	// Best-effort seed corpus from the brand's own site; the research stage
	// falls back to search grounding alone when the fetch fails.
	seedCorpus := ""
	page, err := fetch.BrandPage(ctx, cfg.TargetURL, &fetch.Options{
		Timeout:    fetch.DefaultTimeout,
		UserAgent:  fetch.DefaultUserAgent,
		UseBrowser: cfg.UseBrowser,
		Verbose:    cfg.Verbose,
	})
	if err != nil {
		fmt.Printf("Warning: Failed to fetch brand page: %v\n", err)
	} else {
		seedCorpus = page.Text
		if cfg.Verbose {
			fmt.Printf("Fetched %d chars of brand copy from %s\n", len(seedCorpus), cfg.TargetURL)
		}
	}

	orchestrator := pipeline.New(client, pipeline.Options{
		Store:          artifactStore,
		MaxConcurrency: cfg.MaxConcurrency,
		Verbose:        cfg.Verbose,
	})

	if err := orchestrator.Run(ctx, pipeline.StartInputs{
		TargetURL:    cfg.TargetURL,
		Market:       cfg.Market,
		PersonaCount: cfg.PersonaCount,
		Assets:       assets,
		SeedCorpus:   seedCorpus,
	}); err != nil {
		return err
	}

	state := orchestrator.Snapshot()
	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintBrandProfile(state.BrandProfile)
		printer.PrintPersonas(state.Personas)
		printer.PrintJudgments(state.Personas, state.Judgments)
		printer.PrintMetricsSummary(metrics.Aggregate(state.Judgments))
	}

	fmt.Println(state.FinalReportText)
	return nil
}

// loadAssets reads asset files from disk and sniffs their MIME types.
func loadAssets(paths []string) ([]types.Asset, error) {
	assets := make([]types.Asset, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read asset %s: %w", path, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("asset %s is empty", path)
		}
		assets = append(assets, types.Asset{
			ID:       filepath.Base(path),
			MIMEType: http.DetectContentType(data),
			Data:     data,
		})
	}
	return assets, nil
}
