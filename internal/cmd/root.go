// Package cmd implements the confbridge command line.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "confbridge",
		Short:         "Conference session bridge",
		Long:          "confbridge drives a single conference session on behalf of a host application and streams engine events back to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newDemoCmd(),
	)
	return rootCmd
}
