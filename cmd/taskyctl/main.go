package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasky-bot/tasky/cmd/taskyctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "taskyctl",
		Short: "Operations tool for the Tasky bot",
		Long:  "CLI tool for inspecting users and triggering daily summaries",
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewUsersCmd())
	rootCmd.AddCommand(commands.NewSendSummaryCmd())
	rootCmd.AddCommand(commands.NewCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
