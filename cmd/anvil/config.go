package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize configuration",
	Long: `Inspect the resolved configuration or write a starter config file.

Configuration layers, highest precedence first:
  1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, OPENAI_BASE_URL)
  2. Project config (.anvil.yaml in the current directory or a parent)
  3. User config (~/.config/anvil/config.yaml)
  4. Built-in defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the user config path",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("user config:    %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("project config: %s\n", project)
	}
	fmt.Printf("data dir:       %s\n", cfg.DataDir())
	fmt.Println()
	fmt.Printf("policy:    high_bar=%.1f acceptable_bar=%.1f min_attempts=%d max_iterations=%d\n",
		cfg.Policy.HighBar, cfg.Policy.AcceptableBar,
		cfg.Policy.MinAttemptsBeforeAccept, cfg.Policy.MaxIterations)
	fmt.Printf("tiers:     standard after attempt %d, premium after attempt %d\n",
		cfg.Policy.StandardAfter, cfg.Policy.PremiumAfter)
	fmt.Printf("gate:      answer_timeout=%s\n", cfg.Gate.AnswerTimeout)
	fmt.Printf("budget:    total=%d overview=%d snippets=%d history=%d reserve=%d\n",
		cfg.Budget.TotalTokens, cfg.Budget.OverviewTokens, cfg.Budget.SnippetTokens,
		cfg.Budget.HistoryTokens, cfg.Budget.ReserveTokens)
	fmt.Printf("jobs:      max_concurrent=%d history_window=%d\n",
		cfg.Jobs.MaxConcurrent, cfg.Jobs.HistoryWindow)
	fmt.Printf("knowledge: backend=%s search_limit=%d\n",
		cfg.Knowledge.Backend, cfg.Knowledge.SearchLimit)
	fmt.Printf("server:    listen=%s\n", cfg.Server.Listen)

	if cfg.Anthropic.UseBedrock {
		fmt.Println("anthropic: via AWS Bedrock")
	} else if _, err := config.GetAnthropicKey(cfg); err == nil {
		fmt.Println("anthropic: api key configured")
	} else {
		fmt.Println("anthropic: no api key (cloud tiers unavailable)")
	}
	if cfg.OpenAI.BaseURL != "" {
		fmt.Printf("openai:    %s\n", cfg.OpenAI.BaseURL)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("config written to %s\n", path)
	return nil
}
