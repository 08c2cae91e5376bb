package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/answers"
	"github.com/ShayCichocki/anvil/internal/server"
)

// The control commands talk to a running `anvil serve` instance over
// its HTTP API.

var controlServer string

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := controlClient()
		if err != nil {
			return err
		}
		if err := client.CancelJob(args[0]); err != nil {
			return err
		}
		fmt.Printf("cancellation requested for %s\n", args[0])
		return nil
	},
}

var answerFile bool

var answerCmd = &cobra.Command{
	Use:   "answer <job-id> <question-id> <text>",
	Short: "Answer a pending clarifying question",
	Long: `Answer a job's pending question.

By default the answer goes to the running server over HTTP. With
--file it is dropped into <data-dir>/answers/ instead, where the
server's directory watcher picks it up; useful when scripting or when
the HTTP port is unreachable.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, questionID, text := args[0], args[1], args[2]

		if answerFile {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path, err := answers.WriteAnswer(answers.Dir(cfg.DataDir()), jobID, questionID, text)
			if err != nil {
				return err
			}
			fmt.Printf("answer dropped at %s\n", path)
			return nil
		}

		client, err := controlClient()
		if err != nil {
			return err
		}
		if err := client.SubmitAnswer(jobID, questionID, text); err != nil {
			return err
		}
		fmt.Println("answer accepted")
		return nil
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <job-id> <message>",
	Short: "Send reviewer feedback to a running job",
	Long: `Send an out-of-band note to a live job. The message joins the
overview section of every later prompt for that job.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := controlClient()
		if err != nil {
			return err
		}
		if err := client.SubmitFeedback(args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("feedback recorded")
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{cancelCmd, answerCmd, feedbackCmd, watchCmd} {
		cmd.Flags().StringVar(&controlServer, "server", "", "Server address (default from config)")
	}
	answerCmd.Flags().BoolVar(&answerFile, "file", false, "Deliver via the answers drop directory")
}

// controlClient resolves the server address from the flag or config.
func controlClient() (*server.Client, error) {
	addr := controlServer
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		addr = cfg.Server.Listen
	}
	return server.NewClient(addr), nil
}
