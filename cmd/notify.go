package cmd

import (
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Email the run summary to the team",
	Long: `Renders the summary mail from the report and sends it to the configured
recipients, attaching the HTML report when one exists.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runMailClient(cmd.Context(), cfg, newLogger(verbose))
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
