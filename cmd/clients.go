package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/venturedive/qa-sync/internal/config"
	"github.com/venturedive/qa-sync/internal/db"
	"github.com/venturedive/qa-sync/internal/mail"
	"github.com/venturedive/qa-sync/internal/report"
	"github.com/venturedive/qa-sync/internal/testrail"
)

// DefaultHTMLReport is attached to the summary mail when present on disk.
const DefaultHTMLReport = "reports/report.html"

// loadConfig builds the effective configuration from the config file, .env
// and flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if reportFile != "" {
		cfg.ReportPath = reportFile
	}
	return cfg, nil
}

// runTestRailClient syncs the report against TestRail and submits a run.
func runTestRailClient(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	rep, err := report.Load(cfg.ReportPath)
	if err != nil {
		return err
	}

	sync := testrail.NewSynchronizer(cfg.TestRail, log)
	outcome, err := sync.Run(ctx, rep)
	if err != nil {
		return fmt.Errorf("sync stopped in state %s: %w", sync.State(), err)
	}

	if outcome.NothingToDo {
		log.Info("no test results to publish")
		return nil
	}

	log.WithFields(logrus.Fields{
		"run_id":  outcome.RunID,
		"results": outcome.Submitted,
	}).Info("TestRail sync completed")
	return nil
}

// runDatabaseClient migrates the schema and records the run statistics.
func runDatabaseClient(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	rep, err := report.Load(cfg.ReportPath)
	if err != nil {
		return err
	}

	if err := db.Migrate(cfg.Database, log); err != nil {
		return err
	}

	store, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.InsertRun(ctx, cfg.Suite, rep)
	if err != nil {
		return err
	}

	inserted, err := store.InsertExecutions(ctx, runID, rep)
	if err != nil {
		return fmt.Errorf("inserted %d of %d executions: %w", inserted, len(rep.Tests), err)
	}

	return nil
}

// runMailClient sends the summary mail with the HTML report attached.
func runMailClient(_ context.Context, cfg *config.Config, log *logrus.Logger) error {
	rep, err := report.Load(cfg.ReportPath)
	if err != nil {
		return err
	}

	notifier, err := mail.NewNotifier(cfg.Mail, cfg.Suite, log)
	if err != nil {
		return err
	}

	return notifier.Send(rep, DefaultHTMLReport)
}
