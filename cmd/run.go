package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/venturedive/qa-sync/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch the report to every enabled client",
	Long: `Reads the clients section of the configuration and runs each enabled
client in order: database, testrail, mail. A failing client is logged and
does not stop the others; the command exits non-zero if any enabled client
failed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(verbose)

		return dispatch(cmd.Context(), cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// dispatch runs each enabled client in order, isolating failures so one
// broken integration does not block the rest.
func dispatch(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	type client struct {
		name    string
		enabled bool
		run     func(context.Context, *config.Config, *logrus.Logger) error
	}

	clients := []client{
		{"database", cfg.Clients.Database, runDatabaseClient},
		{"testrail", cfg.Clients.TestRail, runTestRailClient},
		{"mail", cfg.Clients.Mail, runMailClient},
	}

	var failures []error
	enabled := 0

	for _, c := range clients {
		if !c.enabled {
			continue
		}
		enabled++

		log.WithField("client", c.name).Info("client starting")
		if err := c.run(ctx, cfg, log); err != nil {
			log.WithField("client", c.name).WithError(err).Error("client failed")
			failures = append(failures, fmt.Errorf("%s client: %w", c.name, err))
			continue
		}
		log.WithField("client", c.name).Info("client completed")
	}

	if enabled == 0 {
		log.Warn("no clients enabled in the configuration clients section")
		return nil
	}

	return errors.Join(failures...)
}
