// Package config loads and validates dataNERD configuration from
// .datanerd/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dataNERD configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Dataset configuration
	Dataset DatasetConfig `yaml:"dataset"`

	// Dispatch loop settings
	Execution ExecutionConfig `yaml:"execution"`

	// Exchange storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the conversational model client.
type LLMConfig struct {
	Provider        string `yaml:"provider"` // gemini
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	ImageModel      string `yaml:"image_model"`
	BaseURL         string `yaml:"base_url"`
	Timeout         string `yaml:"timeout"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// DatasetConfig configures dataset loading.
type DatasetConfig struct {
	// Path to the delimited text file to analyze.
	Path string `yaml:"path"`

	// Watch reloads the dataset when the file changes on disk.
	Watch bool `yaml:"watch"`

	// Enrich computes the derived engagement column at load time.
	Enrich bool `yaml:"enrich"`
}

// ExecutionConfig bounds the tool dispatch loop.
type ExecutionConfig struct {
	// MaxRounds caps dispatch rounds per exchange to prevent runaway
	// tool-call chains.
	MaxRounds int `yaml:"max_rounds"`

	// MaxChartPoints caps chart data points echoed back to the model.
	MaxChartPoints int `yaml:"max_chart_points"`

	// ToolTimeout is the maximum time for a single tool execution.
	ToolTimeout string `yaml:"tool_timeout"`
}

// StorageConfig configures the exchange store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures category file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "datanerd",
		Version: "0.1.0",
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash",
			ImageModel:      "gemini-2.5-flash-image",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Timeout:         "120s",
			MaxOutputTokens: 8192,
		},
		Dataset: DatasetConfig{
			Enrich: true,
		},
		Execution: ExecutionConfig{
			MaxRounds:      5,
			MaxChartPoints: 50,
			ToolTimeout:    "30s",
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(".datanerd", "exchanges.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the workspace, falling back to defaults
// for any missing fields. A missing config file is not an error.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ".datanerd", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the workspace.
func (c *Config) Save(workspace string) error {
	dir := filepath.Join(workspace, ".datanerd")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("DATANERD_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("DATANERD_DATASET"); path != "" {
		c.Dataset.Path = path
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Execution.MaxRounds <= 0 {
		return fmt.Errorf("execution.max_rounds must be positive, got %d", c.Execution.MaxRounds)
	}
	if c.Execution.MaxChartPoints <= 0 {
		return fmt.Errorf("execution.max_chart_points must be positive, got %d", c.Execution.MaxChartPoints)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return fmt.Errorf("llm.timeout: %w", err)
	}
	if _, err := c.ToolTimeout(); err != nil {
		return fmt.Errorf("execution.tool_timeout: %w", err)
	}
	return nil
}

// LLMTimeout parses the LLM request timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 120 * time.Second, nil
	}
	return time.ParseDuration(c.LLM.Timeout)
}

// ToolTimeout parses the per-tool execution timeout.
func (c *Config) ToolTimeout() (time.Duration, error) {
	if c.Execution.ToolTimeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Execution.ToolTimeout)
}
