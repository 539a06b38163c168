// Package cmd contains the operator commands for a node.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var url string

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:3001", "Url of the node's public host.")
}

var rootCmd = &cobra.Command{
	Use:           "cli",
	Short:         "Inspect and drive a naivechain node",
	SilenceUsage: true,
}

// Execute runs the command selected by the program arguments.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
