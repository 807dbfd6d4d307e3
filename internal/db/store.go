// Package db persists suite-level and per-test statistics to Postgres.
package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/venturedive/qa-sync/internal/config"
	"github.com/venturedive/qa-sync/internal/report"
)

var (
	// ErrMissingConfig is returned when required connection fields are absent.
	ErrMissingConfig = errors.New("missing required database configuration: host, user and name are required")
	// ErrMissingPassword is returned for remote hosts without a password.
	ErrMissingPassword = errors.New("database password is required for remote hosts")
)

const (
	insertRunSQL = `
		INSERT INTO automation_run (
			suite_name, build_version, branch, triggered_by,
			total_test_cases, total_test_passed, total_test_failed, total_test_skipped,
			execution_start_time, execution_end_time, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id;
	`

	insertExecutionSQL = `
		INSERT INTO test_case_execution (
			automation_run_id, test_case_id, test_case_name, test_case_status,
			failure_reason, test_start_time, test_end_time, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW());
	`
)

// Store writes run statistics into Postgres.
type Store struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

// Open validates the connection settings, connects and pings.
func Open(ctx context.Context, cfg config.Database, log logrus.FieldLogger) (*Store, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(logrus.Fields{"host": cfg.Host, "database": cfg.Name}).Debug("connected to database")
	return &Store{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// DSN builds the Postgres connection string. The password is URL-escaped so
// special characters survive.
func DSN(cfg config.Database) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

// InsertRun inserts the suite-level summary row and returns its generated ID.
func (s *Store) InsertRun(ctx context.Context, suite config.Suite, rep *report.Report) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, insertRunSQL,
		suite.Name,
		suite.BuildVersion,
		suite.Branch,
		suite.TriggeredBy,
		rep.Summary.Total,
		rep.Summary.Passed,
		rep.Summary.Failed,
		rep.Summary.Skipped,
		rep.StartTime(),
		rep.EndTime(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert automation run: %w", err)
	}

	s.log.WithField("run_id", id).Info("inserted automation run")
	return id, nil
}

// InsertExecutions inserts one row per test record, linked to the run row.
// Returns the number of rows inserted; the first failure aborts.
func (s *Store) InsertExecutions(ctx context.Context, runID int64, rep *report.Report) (int, error) {
	rows := executionRows(runID, rep)

	for i, row := range rows {
		_, err := s.pool.Exec(ctx, insertExecutionSQL,
			row.RunID,
			row.NodeID,
			row.TestName,
			row.Status,
			nullable(row.FailureReason),
			row.StartTime,
			row.EndTime,
		)
		if err != nil {
			return i, fmt.Errorf("failed to insert execution for %s: %w", row.NodeID, err)
		}
	}

	s.log.WithFields(logrus.Fields{"run_id": runID, "executions": len(rows)}).Info("inserted test case executions")
	return len(rows), nil
}

// executionRow is one test_case_execution row ready for insertion.
type executionRow struct {
	RunID         int64
	NodeID        string
	TestName      string
	Status        string
	FailureReason string
	StartTime     time.Time
	EndTime       time.Time
}

// executionRows derives the per-test rows. The report carries no per-test
// timestamps, so start times roll forward from the suite start by each
// test's summed phase durations.
func executionRows(runID int64, rep *report.Report) []executionRow {
	rows := make([]executionRow, 0, len(rep.Tests))
	current := rep.StartTime()

	for _, rec := range rep.Tests {
		end := current.Add(rec.TotalDuration())
		rows = append(rows, executionRow{
			RunID:         runID,
			NodeID:        rec.NodeID,
			TestName:      caseName(rec.NodeID),
			Status:        rec.Outcome,
			FailureReason: rec.FailureReason(),
			StartTime:     current,
			EndTime:       end,
		})
		current = end
	}

	return rows
}

// caseName reduces a pytest node ID to the bare test name. Node IDs without
// a `::` separator are kept whole.
func caseName(nodeID string) string {
	idx := strings.LastIndex(nodeID, "::")
	if idx < 0 {
		return nodeID
	}
	name := nodeID[idx+2:]
	if bracket := strings.Index(name, "["); bracket >= 0 {
		return name[:bracket]
	}
	return name
}

func validate(cfg config.Database) error {
	if cfg.Host == "" || cfg.User == "" || cfg.Name == "" {
		return ErrMissingConfig
	}
	// Local databases commonly run without a password
	if cfg.Host != "localhost" && cfg.Host != "127.0.0.1" && cfg.Password == "" {
		return ErrMissingPassword
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

