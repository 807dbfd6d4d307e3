package cmd

import (
	"github.com/spf13/cobra"
)

var testrailCmd = &cobra.Command{
	Use:   "testrail",
	Short: "Sync the report with TestRail",
	Long: `Reconciles the report against TestRail and records the results:
- Creates missing sections and cases
- Creates a test run covering every case in the report
- Submits all case statuses in one batch`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runTestRailClient(cmd.Context(), cfg, newLogger(verbose))
	},
}

func init() {
	rootCmd.AddCommand(testrailCmd)
}
