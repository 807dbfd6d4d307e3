// Package cmd contains CLI command definitions
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Logger is the shared logger instance for all commands
	Logger *logrus.Logger

	configFile string
	reportFile string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "qa-sync",
		Short: "QA Sync - publish automation test results",
		Long: `QA Sync reads a pytest JSON report and publishes the results to the
enabled clients: the TestRail test management service, the statistics
database and the team mailing list.

Use 'qa-sync run' to dispatch to every enabled client, or the individual
subcommands for direct operations.`,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&reportFile, "report", "", "path to the pytest JSON report (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Initialize the shared logger; the level is resolved per command
	// from the verbose flag and LOG_LEVEL, see newLogger
	Logger = logrus.New()
}
