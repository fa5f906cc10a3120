// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pepy-stats",
	Short: "A CLI tool to publish PyPI download statistics to a GitHub gist.",
	Long: `pepy-stats fetches download counts for a fixed set of Python packages
from pepy.tech, computes the relative share of each configured pair of
packages, prints the summary as JSON and writes it to a GitHub gist.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (defaults: pandas vs polars)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}
