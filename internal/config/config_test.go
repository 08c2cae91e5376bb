package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/anvil/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Policy.HighBar != 8.0 {
		t.Errorf("expected high bar 8.0, got %v", cfg.Policy.HighBar)
	}

	if cfg.Policy.AcceptableBar != 6.5 {
		t.Errorf("expected acceptable bar 6.5, got %v", cfg.Policy.AcceptableBar)
	}

	if cfg.Policy.MinAttemptsBeforeAccept != 3 {
		t.Errorf("expected min attempts 3, got %d", cfg.Policy.MinAttemptsBeforeAccept)
	}

	if cfg.Policy.MaxIterations != 10 {
		t.Errorf("expected max iterations 10, got %d", cfg.Policy.MaxIterations)
	}

	if cfg.Policy.StandardAfter != 4 || cfg.Policy.PremiumAfter != 7 {
		t.Errorf("expected tier boundaries 4/7, got %d/%d", cfg.Policy.StandardAfter, cfg.Policy.PremiumAfter)
	}

	if cfg.Gate.AnswerTimeout != 5*time.Minute {
		t.Errorf("expected answer timeout 5m, got %v", cfg.Gate.AnswerTimeout)
	}

	if cfg.Budget.TotalTokens != 24000 {
		t.Errorf("expected total budget 24000, got %d", cfg.Budget.TotalTokens)
	}

	if cfg.Jobs.MaxConcurrent != 4 {
		t.Errorf("expected max concurrent 4, got %d", cfg.Jobs.MaxConcurrent)
	}

	if cfg.Knowledge.Backend != "sqlite" {
		t.Errorf("expected knowledge backend sqlite, got %q", cfg.Knowledge.Backend)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  use_bedrock: true
  aws_region: us-west-2
openai:
  base_url: http://localhost:11434/v1
policy:
  high_bar: 9.0
  acceptable_bar: 7.0
  min_attempts_before_accept: 2
  max_iterations: 6
gate:
  answer_timeout: 2m
budget:
  total_tokens: 16000
  min_overview_tokens: 800
jobs:
  max_concurrent: 2
server:
  listen: ":9000"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if !cfg.Anthropic.UseBedrock {
		t.Error("expected use_bedrock to be true")
	}

	if cfg.OpenAI.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("expected openai base_url to round-trip, got %q", cfg.OpenAI.BaseURL)
	}

	if cfg.Policy.HighBar != 9.0 {
		t.Errorf("expected high bar 9.0, got %v", cfg.Policy.HighBar)
	}

	if cfg.Policy.MaxIterations != 6 {
		t.Errorf("expected max iterations 6, got %d", cfg.Policy.MaxIterations)
	}

	if cfg.Gate.AnswerTimeout != 2*time.Minute {
		t.Errorf("expected answer timeout 2m, got %v", cfg.Gate.AnswerTimeout)
	}

	if cfg.Budget.TotalTokens != 16000 {
		t.Errorf("expected total budget 16000, got %d", cfg.Budget.TotalTokens)
	}

	if cfg.Budget.MinOverviewTokens != 800 {
		t.Errorf("expected min overview 800, got %d", cfg.Budget.MinOverviewTokens)
	}

	// Values not present in the file keep their defaults.
	if cfg.Policy.StandardAfter != 4 {
		t.Errorf("expected default standard_after 4, got %d", cfg.Policy.StandardAfter)
	}

	if cfg.Server.Listen != ":9000" {
		t.Errorf("expected listen :9000, got %q", cfg.Server.Listen)
	}
}

func TestLoadFromPath_ExpandsEnv(t *testing.T) {
	os.Setenv("ANVIL_TEST_KEY", "sk-ant-expanded")
	defer os.Unsetenv("ANVIL_TEST_KEY")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := "anthropic:\n  api_key: ${ANVIL_TEST_KEY}\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-expanded" {
		t.Errorf("expected expanded api key, got %q", cfg.Anthropic.APIKey)
	}
}

func TestDataDir(t *testing.T) {
	tests := []struct {
		name    string
		dataDir string
		xdg     string
		want    func(got string) bool
	}{
		{
			name:    "explicit data dir wins",
			dataDir: "/tmp/anvil-data",
			want:    func(got string) bool { return got == "/tmp/anvil-data" },
		},
		{
			name: "xdg data home",
			xdg:  "/tmp/xdg",
			want: func(got string) bool { return got == filepath.Join("/tmp/xdg", "anvil") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.xdg != "" {
				os.Setenv("XDG_DATA_HOME", tt.xdg)
				defer os.Unsetenv("XDG_DATA_HOME")
			}
			cfg := &Config{Storage: StorageConfig{DataDir: tt.dataDir}}
			if got := cfg.DataDir(); !tt.want(got) {
				t.Errorf("DataDir() = %q", got)
			}
		})
	}
}

func TestLoadTierConfigs(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string]string{
		"local.yaml": `
tier: local
provider: openai
models:
  default: qwen2.5-coder-14b-instruct
  fallback: llama-3.1-8b-instruct
max_tokens: 4096
temperature: 0.2
timeout: 90s
`,
		"standard.yaml": `
tier: standard
provider: anthropic
models:
  default: sonnet
  fallback: haiku
max_tokens: 8192
temperature: 0.2
timeout: 5m
`,
		"premium.yaml": `
tier: premium
provider: anthropic
models:
  default: opus
  fallback: sonnet
max_tokens: 8192
temperature: 0.2
timeout: 10m
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	tiers, err := LoadTierConfigs(tmpDir)
	if err != nil {
		t.Fatalf("LoadTierConfigs failed: %v", err)
	}

	if tiers.Local.Provider != "openai" {
		t.Errorf("expected local provider openai, got %q", tiers.Local.Provider)
	}

	if tiers.Local.Timeout.Duration() != 90*time.Second {
		t.Errorf("expected local timeout 90s, got %v", tiers.Local.Timeout.Duration())
	}

	if tiers.Standard.Models.Default != "sonnet" {
		t.Errorf("expected standard default sonnet, got %q", tiers.Standard.Models.Default)
	}

	if tiers.Premium.Models.Fallback != "sonnet" {
		t.Errorf("expected premium fallback sonnet, got %q", tiers.Premium.Models.Fallback)
	}
}

func TestLoadTierConfigs_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	// Only local.yaml present; standard.yaml missing should error.
	if err := os.WriteFile(filepath.Join(tmpDir, "local.yaml"), []byte("tier: local\n"), 0644); err != nil {
		t.Fatalf("failed to write local.yaml: %v", err)
	}

	if _, err := LoadTierConfigs(tmpDir); err == nil {
		t.Error("expected error for missing standard.yaml, got nil")
	}
}

func TestTierConfigs_Get(t *testing.T) {
	tiers := DefaultTierConfigs()

	tests := []struct {
		name string
		tier models.Tier
		want string
	}{
		{"local maps to local", models.TierLocal, "local"},
		{"standard maps to standard", models.TierStandard, "standard"},
		{"premium maps to premium", models.TierPremium, "premium"},
		{"unknown falls back to standard", models.Tier("bogus"), "standard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tiers.Get(tt.tier); got.Tier != tt.want {
				t.Errorf("Get(%q).Tier = %q, want %q", tt.tier, got.Tier, tt.want)
			}
		})
	}
}

func TestDefaultTierConfigs(t *testing.T) {
	tiers := DefaultTierConfigs()

	if tiers.Local == nil || tiers.Standard == nil || tiers.Premium == nil {
		t.Fatal("DefaultTierConfigs returned nil tier")
	}

	if tiers.Local.Provider != "openai" {
		t.Errorf("expected local provider openai, got %q", tiers.Local.Provider)
	}

	if tiers.Standard.Provider != "anthropic" || tiers.Premium.Provider != "anthropic" {
		t.Error("expected cloud tiers to use the anthropic provider")
	}

	if tiers.Premium.Timeout.Duration() <= tiers.Local.Timeout.Duration() {
		t.Error("expected premium timeout to exceed local timeout")
	}
}
