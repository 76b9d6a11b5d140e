// Package cli implements the mindpath command-line interface using Cobra.
// Each subcommand is a thin wrapper over the engagement service.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "mindpath",
	Short: "mindpath: wellness progression engine",
	Long: `mindpath tracks guided wellness exercises and mood check-ins.
Completing exercises earns XP, levels, streaks and achievements.

Run 'mindpath serve' to expose the HTTP API, or use the subcommands
below against the local database directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warn")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
