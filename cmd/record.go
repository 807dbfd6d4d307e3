package cmd

import (
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record run statistics in the database",
	Long: `Applies any pending schema migrations, then inserts the suite summary
into automation_run and one row per test into test_case_execution.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runDatabaseClient(cmd.Context(), cfg, newLogger(verbose))
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
}
