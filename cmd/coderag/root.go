package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coderag",
	Short: "coderag is a project-scoped code retrieval and synthesis engine",
	Long:  `A command-line interface for registering projects, syncing their index, and asking questions against a hierarchically packed retrieval context.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // cobra command registration
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(applyEditCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(metricsCmd)
}
