package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the anvil version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("anvil %s\n", version.Get())
	},
}
