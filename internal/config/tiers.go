package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// Duration wraps time.Duration so tier YAML can use strings like "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration().String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// TierConfig holds configuration for a single generation tier loaded from YAML.
type TierConfig struct {
	// Tier is the tier name (local, standard, premium).
	Tier string `yaml:"tier"`
	// Provider selects the client: "openai" or "anthropic".
	Provider string `yaml:"provider"`
	// Models contains model selection for this tier.
	Models TierModels `yaml:"models"`
	// MaxTokens is the generation output cap for this tier.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature is the sampling temperature for this tier.
	Temperature float32 `yaml:"temperature"`
	// Timeout is the per-generation timeout.
	Timeout Duration `yaml:"timeout"`
}

// TierModels holds model selection settings for a tier.
type TierModels struct {
	// Default is the model normally used.
	Default string `yaml:"default"`
	// Fallback is used when the default model errors.
	Fallback string `yaml:"fallback"`
}

// TierConfigs holds all tier configurations.
type TierConfigs struct {
	Local    *TierConfig
	Standard *TierConfig
	Premium  *TierConfig
}

// Get returns the tier config for the given tier. Unknown tiers fall back
// to standard.
func (tc *TierConfigs) Get(tier models.Tier) *TierConfig {
	switch tier {
	case models.TierLocal:
		return tc.Local
	case models.TierStandard:
		return tc.Standard
	case models.TierPremium:
		return tc.Premium
	default:
		return tc.Standard
	}
}

// LoadTierConfigs loads tier configurations from the given directory.
// It looks for local.yaml, standard.yaml, and premium.yaml. If configsDir
// is empty it defaults to "configs" relative to the current directory.
func LoadTierConfigs(configsDir string) (*TierConfigs, error) {
	if configsDir == "" {
		configsDir = "configs"
	}

	tiers := &TierConfigs{}

	localCfg, err := loadTierConfig(filepath.Join(configsDir, "local.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load local config: %w", err)
	}
	tiers.Local = localCfg

	standardCfg, err := loadTierConfig(filepath.Join(configsDir, "standard.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load standard config: %w", err)
	}
	tiers.Standard = standardCfg

	premiumCfg, err := loadTierConfig(filepath.Join(configsDir, "premium.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load premium config: %w", err)
	}
	tiers.Premium = premiumCfg

	return tiers, nil
}

// loadTierConfig loads a single tier configuration from a YAML file.
func loadTierConfig(path string) (*TierConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &TierConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultTierConfigs returns hardcoded default tier configurations.
// This is the fallback when YAML files are not available.
func DefaultTierConfigs() *TierConfigs {
	return &TierConfigs{
		Local: &TierConfig{
			Tier:     "local",
			Provider: "openai",
			Models: TierModels{
				Default:  "qwen2.5-coder-14b-instruct",
				Fallback: "llama-3.1-8b-instruct",
			},
			MaxTokens:   4096,
			Temperature: 0.2,
			Timeout:     Duration(2 * time.Minute),
		},
		Standard: &TierConfig{
			Tier:     "standard",
			Provider: "anthropic",
			Models: TierModels{
				Default:  "sonnet",
				Fallback: "haiku",
			},
			MaxTokens:   8192,
			Temperature: 0.2,
			Timeout:     Duration(5 * time.Minute),
		},
		Premium: &TierConfig{
			Tier:     "premium",
			Provider: "anthropic",
			Models: TierModels{
				Default:  "opus",
				Fallback: "sonnet",
			},
			MaxTokens:   8192,
			Temperature: 0.2,
			Timeout:     Duration(10 * time.Minute),
		},
	}
}
