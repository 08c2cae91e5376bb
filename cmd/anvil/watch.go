package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch jobs on a running server in a TUI",
	Long: `Open a terminal UI against a running 'anvil serve' instance.

Shows every job with its status, attempt count, and last score;
pending questions can be answered inline (press 'a').`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := controlClient()
		if err != nil {
			return err
		}
		// Fail fast with a useful message instead of an empty screen.
		if _, err := client.ListJobs(); err != nil {
			return fmt.Errorf("connect to server: %w", err)
		}

		program := tea.NewProgram(tui.New(client), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}
