package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
	"github.com/ShayCichocki/anvil/pkg/models"
)

var (
	runLanguage      string
	runMaxIterations int
	runOutput        string
	runNoPersist     bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run one job to completion in the foreground",
	Long: `Run a single code-generation job and stream its progress.

The loop generates at the cheapest tier first and escalates on
repeated low scores. Clarifying questions are asked on the terminal;
press enter without typing to fall back to the question's default.

Examples:
  anvil run "write a token-bucket rate limiter"
  anvil run "port this queue to generics" --language go --max-iterations 5
  anvil run "add an auth middleware" --output middleware.go`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "go", "Target language")
	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "n", 0, "Attempt limit (default from config)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Write the accepted artifact to this file")
	runCmd.Flags().BoolVar(&runNoPersist, "no-persist", false, "Skip recording the job in the state database")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := buildRuntime(cfg, logger, !runNoPersist)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobID, err := rt.engine.StartJob(args[0], runLanguage, runMaxIterations)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	fmt.Printf("job %s started\n", jobID)

	go streamEvents(ctx, rt.engine, jobID)
	go func() {
		<-ctx.Done()
		rt.engine.CancelJob(jobID)
	}()

	status, err := rt.engine.Wait(context.Background(), jobID)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rt.engine.Shutdown(shutdownCtx)

	return printResult(status)
}

// streamEvents prints engine events for the job and answers its
// questions from the terminal.
func streamEvents(ctx context.Context, engine *orchestrator.Engine, jobID string) {
	stdin := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-engine.Events():
			if !ok {
				return
			}
			if event.JobID != jobID {
				continue
			}
			switch event.Type {
			case orchestrator.EventAttemptStarted:
				fmt.Printf("  attempt %d (%s tier)...\n", event.Attempt, event.Tier)
			case orchestrator.EventAttemptScored:
				fmt.Printf("  attempt %d scored %.1f/10\n", event.Attempt, event.Score)
			case orchestrator.EventEscalated:
				color.Yellow("  escalating to %s tier", event.Tier)
			case orchestrator.EventQuestionAsked:
				if event.Question != nil {
					promptAnswer(engine, stdin, event.Question)
				}
			case orchestrator.EventQuestionAnswered:
				fmt.Printf("  answered: %s\n", event.Message)
			}
		}
	}
}

// promptAnswer asks the question on the terminal. An empty line leaves
// the gate to its timeout and default.
func promptAnswer(engine *orchestrator.Engine, stdin *bufio.Reader, q *models.Question) {
	color.Cyan("\n? %s", q.Prompt)
	if len(q.Choices) > 0 {
		fmt.Printf("  choices: %s\n", strings.Join(q.Choices, ", "))
	}
	if q.Default != "" {
		fmt.Printf("  (enter for default: %s)\n", q.Default)
	}
	fmt.Print("> ")

	line, err := stdin.ReadString('\n')
	if err != nil {
		return
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return
	}
	if err := engine.SubmitAnswer(q.JobID, q.ID, answer); err != nil {
		color.Red("  answer not accepted: %v", err)
	}
}

func printResult(status orchestrator.Status) error {
	switch status.Status {
	case models.JobStatusCompleted:
		color.Green("\njob completed: attempt %d scored %.1f/10",
			status.Result.AttemptNumber, status.Result.Score)
	case models.JobStatusFailed:
		color.Red("\njob failed: %s", status.Result.Reason)
	case models.JobStatusCancelled:
		color.Yellow("\njob cancelled")
	}

	if status.Result != nil && status.Result.Artifact != "" {
		if runOutput != "" {
			if err := os.WriteFile(runOutput, []byte(status.Result.Artifact), 0644); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}
			fmt.Printf("artifact written to %s\n", runOutput)
		} else {
			fmt.Println("\n" + status.Result.Artifact)
		}
	}

	if status.Status != models.JobStatusCompleted {
		os.Exit(1)
	}
	return nil
}
