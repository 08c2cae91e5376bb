package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/internal/logging"
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Multi-tier code generation engine",
	Long: `Anvil coordinates multi-step, multi-model code-generation jobs.

Each job runs an attempt loop: assemble a budgeted prompt, generate at
the current cost tier, score the result, and either accept, retry, or
escalate to a stronger model. Ambiguous tasks pause for a human answer
before the first attempt.

Run a one-shot job:
  anvil run "write a rate limiter" --language go

Or serve the HTTP API and drive jobs remotely:
  anvil serve
  anvil status
  anvil answer <job-id> <question-id> "JWT"`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger honoring --verbose.
func newLogger() (*zap.Logger, error) {
	return logging.New(rootVerbose)
}

// loadConfig loads the layered configuration.
func loadConfig() (*config.Config, error) {
	return config.Load()
}
