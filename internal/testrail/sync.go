package testrail

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/venturedive/qa-sync/internal/config"
	"github.com/venturedive/qa-sync/internal/report"
)

// State is the synchronizer's position in the sync flow. Failed is terminal
// and reachable from any non-terminal state.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateReconciled
	StateRunCreated
	StateResultsSubmitted
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateReconciled:
		return "reconciled"
	case StateRunCreated:
		return "run_created"
	case StateResultsSubmitted:
		return "results_submitted"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the overall verdict of one sync operation.
type Outcome struct {
	RunID       int
	Submitted   int
	NothingToDo bool
}

// Synchronizer drives one full sync: extract, reconcile, create run, submit
// results. Instances are single-use and single-threaded; build a fresh one
// per invocation.
type Synchronizer struct {
	cfg   config.TestRail
	log   logrus.FieldLogger
	state State

	now func() time.Time
}

// NewSynchronizer builds a synchronizer for one sync operation.
func NewSynchronizer(cfg config.TestRail, log logrus.FieldLogger) *Synchronizer {
	return &Synchronizer{
		cfg:   cfg,
		log:   log,
		state: StateIdle,
		now:   time.Now,
	}
}

// State reports the state reached so far, for diagnostics after a failure.
func (s *Synchronizer) State() State {
	return s.state
}

// Run executes the sync flow against the given report. On failure the
// synchronizer lands in the failed state and the error names the stage;
// sections, cases or runs already created remotely are left as-is. A report
// with no test records short-circuits to a nothing-to-do outcome after the
// gateway's authentication probe, without any further remote calls.
func (s *Synchronizer) Run(ctx context.Context, rep *report.Report) (*Outcome, error) {
	client, err := NewClient(ctx, s.cfg, s.log)
	if err != nil {
		return nil, s.fail("connect", err)
	}

	if len(rep.Tests) == 0 {
		s.log.Info("no tests found in report, nothing to sync")
		s.state = StateDone
		return &Outcome{NothingToDo: true}, nil
	}

	project, err := client.GetProjectByName(ctx, s.cfg.ProjectName)
	if err != nil {
		return nil, s.fail("connect", err)
	}
	s.state = StateConnected

	infos := make([]TestInfo, 0, len(rep.Tests))
	for _, rec := range rep.Tests {
		infos = append(infos, ExtractInfo(rec))
	}

	reconciler := NewReconciler(client, s.log, project.ID, s.cfg.SuiteID)
	reconciled, err := reconciler.Reconcile(ctx, infos)
	if err != nil {
		return nil, s.fail("reconcile", err)
	}
	s.state = StateReconciled

	runName := s.cfg.RunName
	if runName == "" {
		runName = "Automation Run - " + s.now().Format("2006-01-02 15:04:05")
	}

	caseIDs := dedupe(reconciled.CaseIDs)
	run, err := client.AddRun(ctx, project.ID, RunSpec{
		CaseIDs:     caseIDs,
		SuiteID:     s.cfg.SuiteID,
		Name:        runName,
		Description: s.cfg.RunDescription,
	})
	if err != nil {
		return nil, s.fail("create run", err)
	}
	s.state = StateRunCreated

	results := buildResults(caseIDs, reconciled.CaseInfo)
	if err := client.AddResultsForCases(ctx, run.ID, results); err != nil {
		return nil, s.fail("submit results", err)
	}
	s.state = StateResultsSubmitted

	s.state = StateDone
	s.log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"results": len(results),
	}).Info("TestRail run completed")

	return &Outcome{RunID: run.ID, Submitted: len(results)}, nil
}

func (s *Synchronizer) fail(stage string, err error) error {
	s.state = StateFailed
	return fmt.Errorf("%s: %w", stage, err)
}

// buildResults assembles one entry per unique case ID, in first-seen order.
// The TestInfo in the map is the last one that resolved to the case, so
// parametrized duplicates submit the status of the final parametrization.
func buildResults(caseIDs []int, caseInfo map[int]TestInfo) []Result {
	results := make([]Result, 0, len(caseIDs))
	for _, id := range caseIDs {
		info, ok := caseInfo[id]
		if !ok {
			continue
		}
		result := Result{CaseID: id, StatusID: info.Status}
		if info.FailureReason != "" {
			result.Comment = info.FailureReason
		}
		results = append(results, result)
	}
	return results
}

// dedupe removes duplicate case IDs preserving first occurrence order.
func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
