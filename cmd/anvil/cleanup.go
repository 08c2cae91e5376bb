package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/state"
)

var (
	cleanupOlderThan time.Duration
	cleanupAll       bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge finished jobs from the state database",
	Long: `Delete terminal jobs (completed, failed, cancelled) and their
attempts and questions from the state database.

Examples:
  anvil cleanup                      # purge jobs finished over 7 days ago
  anvil cleanup --older-than 24h     # purge jobs finished over a day ago
  anvil cleanup --all                # purge every terminal job`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 7*24*time.Hour, "Retention window for terminal jobs")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Purge every terminal job regardless of age")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := state.DBPath(cfg.DataDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("nothing to clean up")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate state database: %w", err)
	}

	retention := cleanupOlderThan
	if cleanupAll {
		retention = 0
	}
	count, err := db.PurgeTerminalJobs(retention)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d terminal job(s)\n", count)
	return nil
}
