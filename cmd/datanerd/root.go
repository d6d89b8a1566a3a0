package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"datanerd/internal/config"
	"datanerd/internal/dataset"
	"datanerd/internal/logging"
	"datanerd/internal/media"
	"datanerd/internal/perception"
	"datanerd/internal/session"
	"datanerd/internal/store"
	"datanerd/internal/tools"
	"datanerd/internal/types"
)

var (
	// Global flags
	flagWorkspace string
	flagDataset   string
	flagNoEnrich  bool
	flagVerbose   bool

	// Loaded configuration
	cfg *config.Config

	// CLI-level structured logger (stderr); category file logs are
	// handled separately by internal/logging.
	zlog *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "datanerd",
	Short: "dataNERD: ask questions about a CSV dataset in plain language",
	Long: `dataNERD loads a delimited text dataset, profiles its columns, and
answers questions through an LLM that drives analytical tools: column
statistics, value counts, top-N rankings, time series and more.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main().
func Execute() {
	cobra.OnInitialize(initRuntime)
	defer func() {
		if zlog != nil {
			_ = zlog.Sync()
		}
		logging.CloseAll()
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", ".", "workspace directory holding .datanerd/")
	rootCmd.PersistentFlags().StringVarP(&flagDataset, "dataset", "d", "", "dataset file path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoEnrich, "no-enrich", false, "skip computing the engagement column at load time")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose CLI diagnostics on stderr")
}

func initRuntime() {
	var err error
	if flagVerbose {
		logger, lerr := zap.NewDevelopment()
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not build logger: %v\n", lerr)
		} else {
			zlog = logger.Sugar()
		}
	} else {
		zlog = zap.NewNop().Sugar()
	}

	cfg, err = config.Load(flagWorkspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	if flagDataset != "" {
		cfg.Dataset.Path = flagDataset
	}
	if flagNoEnrich {
		cfg.Dataset.Enrich = false
	}

	if err := logging.Initialize(flagWorkspace); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	logging.Boot("dataNERD starting (workspace=%s, dataset=%s)", flagWorkspace, cfg.Dataset.Path)
}

// loadDataset reads and optionally enriches the configured dataset.
func loadDataset() (*dataset.Dataset, error) {
	if cfg.Dataset.Path == "" {
		return nil, fmt.Errorf("no dataset configured; pass --dataset or set dataset.path in .datanerd/config.yaml")
	}
	ds, err := dataset.LoadFile(cfg.Dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	if cfg.Dataset.Enrich {
		ds = ds.Enrich()
	}
	zlog.Debugw("dataset loaded", "path", cfg.Dataset.Path, "rows", len(ds.Rows), "columns", len(ds.Headers))
	return ds, nil
}

// buildEngine assembles the LLM client, tool registry and dispatch
// engine around the given dataset.
func buildEngine(ds *dataset.Dataset) (*session.Engine, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set GEMINI_API_KEY or llm.api_key in .datanerd/config.yaml")
	}

	timeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, err
	}
	client := perception.NewGeminiClientWithConfig(perception.GeminiConfig{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		Timeout:         timeout,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})

	toolTimeout, err := cfg.ToolTimeout()
	if err != nil {
		return nil, err
	}

	// Tools read the dataset through the engine so a watch-mode swap
	// never lands mid-exchange.
	var engine *session.Engine
	registry := tools.NewRegistry()
	tools.RegisterDatasetTools(registry, func() *dataset.Dataset { return engine.Dataset() })
	tools.RegisterMediaTools(registry, buildImageGenerator())

	engine = session.NewEngine(client, registry, ds, session.EngineConfig{
		MaxRounds:      cfg.Execution.MaxRounds,
		MaxChartPoints: cfg.Execution.MaxChartPoints,
		ToolTimeout:    toolTimeout,
	})

	zlog.Debugw("engine ready", "tools", registry.Count(), "max_rounds", cfg.Execution.MaxRounds)
	return engine, nil
}

// buildImageGenerator returns nil when image generation is unavailable;
// the tool is simply not registered in that case.
func buildImageGenerator() types.ImageGenerator {
	gen, err := media.NewGenAIGenerator(cfg.LLM.APIKey, cfg.LLM.ImageModel)
	if err != nil {
		zlog.Debugw("image generation disabled", "reason", err)
		logging.API("Image generation disabled: %v", err)
		return nil
	}
	return gen
}

// openStore opens the exchange history database.
func openStore() (*store.Store, error) {
	path := cfg.Storage.DatabasePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(flagWorkspace, path)
	}
	return store.NewStore(path)
}
