// Package config handles configuration loading and management for Anvil.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Anvil.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Gate      GateConfig      `mapstructure:"gate"`
	Budget    BudgetConfig    `mapstructure:"budget"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// AnthropicConfig holds Anthropic API settings for the cloud tiers.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Supports ${VAR} expansion.
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes requests through AWS Bedrock instead of the direct API.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the Bedrock region when UseBedrock is set.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the shared-config profile for Bedrock credentials.
	AWSProfile string `mapstructure:"aws_profile"`
}

// OpenAIConfig holds settings for the OpenAI-compatible local tier.
type OpenAIConfig struct {
	// APIKey is the API key; local servers usually accept any value.
	APIKey string `mapstructure:"api_key"`
	// BaseURL points at an OpenAI-compatible endpoint, e.g. a llama.cpp
	// or Ollama server. Empty means the hosted OpenAI API.
	BaseURL string `mapstructure:"base_url"`
}

// PolicyConfig holds the escalation policy thresholds.
type PolicyConfig struct {
	// HighBar is the score at which a result is accepted immediately.
	HighBar float64 `mapstructure:"high_bar"`
	// AcceptableBar is the score accepted after MinAttemptsBeforeAccept.
	AcceptableBar float64 `mapstructure:"acceptable_bar"`
	// MinAttemptsBeforeAccept is the minimum attempts before an
	// acceptable-but-not-high score is taken.
	MinAttemptsBeforeAccept int `mapstructure:"min_attempts_before_accept"`
	// MaxIterations bounds the attempt loop when the caller does not choose.
	MaxIterations int `mapstructure:"max_iterations"`
	// StandardAfter is the attempt number at which retries move to the
	// standard tier.
	StandardAfter int `mapstructure:"standard_after"`
	// PremiumAfter is the attempt number at which retries move to the
	// premium tier.
	PremiumAfter int `mapstructure:"premium_after"`
}

// GateConfig holds conversation gate settings.
type GateConfig struct {
	// AnswerTimeout is how long a job waits for a human answer.
	AnswerTimeout time.Duration `mapstructure:"answer_timeout"`
	// IdleCleanupAfter is how long an idle conversation survives after
	// its job reaches a terminal state.
	IdleCleanupAfter time.Duration `mapstructure:"idle_cleanup_after"`
}

// BudgetConfig holds prompt budget ceilings, in tokens.
type BudgetConfig struct {
	// TotalTokens is the hard ceiling for an assembled prompt.
	TotalTokens int `mapstructure:"total_tokens"`
	// OverviewTokens is the allotment for the task overview section.
	OverviewTokens int `mapstructure:"overview_tokens"`
	// SnippetTokens is the allotment for retrieved knowledge snippets.
	SnippetTokens int `mapstructure:"snippet_tokens"`
	// HistoryTokens is the allotment for prior-attempt feedback.
	HistoryTokens int `mapstructure:"history_tokens"`
	// ReserveTokens is headroom left for the model's own output.
	ReserveTokens int `mapstructure:"reserve_tokens"`
	// MinOverviewTokens is the floor below which the overview is never cut.
	MinOverviewTokens int `mapstructure:"min_overview_tokens"`
}

// JobsConfig holds engine-wide job limits.
type JobsConfig struct {
	// MaxConcurrent caps how many jobs run attempt loops at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// HistoryWindow is how many recent attempts feed the next prompt.
	HistoryWindow int `mapstructure:"history_window"`
	// RetainTerminal is how long finished jobs stay queryable before
	// cleanup removes them.
	RetainTerminal time.Duration `mapstructure:"retain_terminal"`
}

// KnowledgeConfig holds snippet search settings.
type KnowledgeConfig struct {
	// Backend selects the search implementation: "sqlite" or "weaviate".
	Backend string `mapstructure:"backend"`
	// SearchLimit is how many snippets a search returns at most.
	SearchLimit int `mapstructure:"search_limit"`
	// WeaviateURL is the Weaviate endpoint when Backend is "weaviate".
	WeaviateURL string `mapstructure:"weaviate_url"`
	// WeaviateClass is the object class holding snippets.
	WeaviateClass string `mapstructure:"weaviate_class"`
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	// Listen is the address the HTTP server binds, e.g. ":8642".
	Listen string `mapstructure:"listen"`
}

// StorageConfig holds on-disk state locations.
type StorageConfig struct {
	// DataDir is the directory for the state database, the knowledge
	// database, and the answers drop directory. Empty means
	// ~/.local/share/anvil.
	DataDir string `mapstructure:"data_dir"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, OPENAI_BASE_URL)
// 2. Project config (.anvil.yaml in current directory or parent)
// 3. User config (~/.config/anvil/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("openai.api_key", cfg.OpenAI.APIKey)
	v.Set("openai.base_url", cfg.OpenAI.BaseURL)
	v.Set("policy.high_bar", cfg.Policy.HighBar)
	v.Set("policy.acceptable_bar", cfg.Policy.AcceptableBar)
	v.Set("policy.min_attempts_before_accept", cfg.Policy.MinAttemptsBeforeAccept)
	v.Set("policy.max_iterations", cfg.Policy.MaxIterations)
	v.Set("policy.standard_after", cfg.Policy.StandardAfter)
	v.Set("policy.premium_after", cfg.Policy.PremiumAfter)
	v.Set("gate.answer_timeout", cfg.Gate.AnswerTimeout.String())
	v.Set("gate.idle_cleanup_after", cfg.Gate.IdleCleanupAfter.String())
	v.Set("budget.total_tokens", cfg.Budget.TotalTokens)
	v.Set("budget.overview_tokens", cfg.Budget.OverviewTokens)
	v.Set("budget.snippet_tokens", cfg.Budget.SnippetTokens)
	v.Set("budget.history_tokens", cfg.Budget.HistoryTokens)
	v.Set("budget.reserve_tokens", cfg.Budget.ReserveTokens)
	v.Set("budget.min_overview_tokens", cfg.Budget.MinOverviewTokens)
	v.Set("jobs.max_concurrent", cfg.Jobs.MaxConcurrent)
	v.Set("jobs.history_window", cfg.Jobs.HistoryWindow)
	v.Set("jobs.retain_terminal", cfg.Jobs.RetainTerminal.String())
	v.Set("knowledge.backend", cfg.Knowledge.Backend)
	v.Set("knowledge.search_limit", cfg.Knowledge.SearchLimit)
	v.Set("knowledge.weaviate_url", cfg.Knowledge.WeaviateURL)
	v.Set("knowledge.weaviate_class", cfg.Knowledge.WeaviateClass)
	v.Set("server.listen", cfg.Server.Listen)
	v.Set("storage.data_dir", cfg.Storage.DataDir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DataDir resolves the storage directory, creating nothing.
func (c *Config) DataDir() string {
	if c.Storage.DataDir != "" {
		return expandEnv(c.Storage.DataDir)
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "anvil")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".anvil")
	}
	return filepath.Join(home, ".local", "share", "anvil")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("policy.high_bar", 8.0)
	v.SetDefault("policy.acceptable_bar", 6.5)
	v.SetDefault("policy.min_attempts_before_accept", 3)
	v.SetDefault("policy.max_iterations", 10)
	v.SetDefault("policy.standard_after", 4)
	v.SetDefault("policy.premium_after", 7)

	v.SetDefault("gate.answer_timeout", "5m")
	v.SetDefault("gate.idle_cleanup_after", "1h")

	v.SetDefault("budget.total_tokens", 24000)
	v.SetDefault("budget.overview_tokens", 4000)
	v.SetDefault("budget.snippet_tokens", 8000)
	v.SetDefault("budget.history_tokens", 8000)
	v.SetDefault("budget.reserve_tokens", 4000)
	v.SetDefault("budget.min_overview_tokens", 500)

	v.SetDefault("jobs.max_concurrent", 4)
	v.SetDefault("jobs.history_window", 3)
	v.SetDefault("jobs.retain_terminal", "24h")

	v.SetDefault("knowledge.backend", "sqlite")
	v.SetDefault("knowledge.search_limit", 5)
	v.SetDefault("knowledge.weaviate_url", "http://localhost:8080")
	v.SetDefault("knowledge.weaviate_class", "CodeSnippet")

	v.SetDefault("server.listen", ":8642")
	v.SetDefault("storage.data_dir", "")
}

// getUserConfigDir returns the XDG config directory for Anvil.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "anvil")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "anvil")
	}
	return filepath.Join(home, ".config", "anvil")
}

// findProjectConfig searches for .anvil.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".anvil.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Policy: PolicyConfig{
			HighBar:                 8.0,
			AcceptableBar:           6.5,
			MinAttemptsBeforeAccept: 3,
			MaxIterations:           10,
			StandardAfter:           4,
			PremiumAfter:            7,
		},
		Gate: GateConfig{
			AnswerTimeout:    5 * time.Minute,
			IdleCleanupAfter: time.Hour,
		},
		Budget: BudgetConfig{
			TotalTokens:       24000,
			OverviewTokens:    4000,
			SnippetTokens:     8000,
			HistoryTokens:     8000,
			ReserveTokens:     4000,
			MinOverviewTokens: 500,
		},
		Jobs: JobsConfig{
			MaxConcurrent:  4,
			HistoryWindow:  3,
			RetainTerminal: 24 * time.Hour,
		},
		Knowledge: KnowledgeConfig{
			Backend:       "sqlite",
			SearchLimit:   5,
			WeaviateURL:   "http://localhost:8080",
			WeaviateClass: "CodeSnippet",
		},
		Server: ServerConfig{
			Listen: ":8642",
		},
	}
}
