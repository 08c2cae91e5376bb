package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/state"
	"github.com/ShayCichocki/anvil/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show job status from the state database",
	Long: `Show recorded jobs, or one job's attempts and questions.

Reads the local state database, so it works whether or not a server
is running. For live in-memory state, query a running server:
  curl localhost:8642/v1/jobs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "How many jobs to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := state.DBPath(cfg.DataDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No jobs recorded yet. Run 'anvil run <task>' to start one.")
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

	if len(args) == 1 {
		return showJob(db, args[0])
	}
	return listJobs(db)
}

func listJobs(db *state.DB) error {
	jobs, err := db.ListJobs(nil, statusLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs recorded yet. Run 'anvil run <task>' to start one.")
		return nil
	}

	fmt.Printf("%-38s %-10s %-8s %-6s %s\n", "JOB", "STATUS", "LANG", "SCORE", "TASK")
	for _, job := range jobs {
		score := "-"
		if job.Result != nil {
			score = fmt.Sprintf("%.1f", job.Result.Score)
		}
		fmt.Printf("%-38s %-10s %-8s %-6s %s\n",
			job.ID, statusColor(job.Status), job.Language, score, truncateTask(job.Task, 48))
	}
	return nil
}

func showJob(db *state.DB, jobID string) error {
	job, err := db.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	fmt.Printf("Job:      %s\n", job.ID)
	fmt.Printf("Status:   %s\n", statusColor(job.Status))
	fmt.Printf("Language: %s\n", job.Language)
	fmt.Printf("Created:  %s\n", job.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Task:     %s\n", job.Task)
	if job.Result != nil && job.Result.Reason != "" {
		fmt.Printf("Reason:   %s\n", job.Result.Reason)
	}

	attempts, err := db.ListAttempts(jobID)
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	if len(attempts) > 0 {
		fmt.Println("\nAttempts:")
		for _, a := range attempts {
			fmt.Printf("  #%d  %-8s  %.1f/10  %s\n", a.Number, a.Tier, a.Score, a.Summary)
			for _, issue := range a.Issues {
				fmt.Printf("      [%s] %s\n", issue.Severity, issue.Message)
			}
		}
	}

	questions, err := db.ListQuestions(jobID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) > 0 {
		fmt.Println("\nQuestions:")
		for _, q := range questions {
			if q.Status == models.QuestionAnswered {
				fmt.Printf("  %s -> %s (%s)\n", q.Prompt, q.Answer, q.Source)
			} else {
				fmt.Printf("  %s (pending, id %s)\n", q.Prompt, q.ID)
			}
		}
	}

	if job.Result != nil && job.Result.Artifact != "" {
		fmt.Printf("\nArtifact: attempt %d, %d bytes (anvil status is metadata-only; see the API for content)\n",
			job.Result.AttemptNumber, len(job.Result.Artifact))
	}
	return nil
}

func statusColor(status models.JobStatus) string {
	switch status {
	case models.JobStatusCompleted:
		return color.GreenString(string(status))
	case models.JobStatusFailed:
		return color.RedString(string(status))
	case models.JobStatusRunning:
		return color.CyanString(string(status))
	case models.JobStatusCancelled:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

func truncateTask(task string, n int) string {
	task = strings.ReplaceAll(task, "\n", " ")
	if len(task) <= n {
		return task
	}
	return task[:n-3] + "..."
}
