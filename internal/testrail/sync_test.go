package testrail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/venturedive/qa-sync/internal/config"
	"github.com/venturedive/qa-sync/internal/report"
)

func passingRecord(nodeID string) report.TestRecord {
	return report.TestRecord{NodeID: nodeID, Outcome: "passed", Call: &report.Phase{Duration: 0.5}}
}

func newTestSynchronizer(fake *fakeTestRail, t *testing.T, mutate func(*config.TestRail)) *Synchronizer {
	t.Helper()

	srv := fake.server()
	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	return NewSynchronizer(cfg, newTestLogger())
}

func TestSync_EmptyReportIsNothingToDo(t *testing.T) {
	t.Parallel()

	fake := newFakeTestRail(t)
	fake.addProject(1, "Web App")
	sync := newTestSynchronizer(fake, t, nil)

	outcome, err := sync.Run(context.Background(), &report.Report{})
	require.NoError(t, err)
	require.True(t, outcome.NothingToDo)

	// Only the construction-time auth probe reached the server
	require.Equal(t, 1, fake.listProjectCalls)
	require.Zero(t, fake.addRunCalls)
	require.Empty(t, fake.batches)
}

func TestSync_ParametrizedDuplicatesCollapse(t *testing.T) {
	t.Parallel()

	fake := newFakeTestRail(t)
	fake.addProject(1, "Web App")
	sync := newTestSynchronizer(fake, t, nil)

	rep := &report.Report{Tests: []report.TestRecord{
		passingRecord("tests/test_cart.py::TestCart::test_a[chromium]"),
		passingRecord("tests/test_cart.py::TestCart::test_a[firefox]"),
	}}

	outcome, err := sync.Run(context.Background(), rep)
	require.NoError(t, err)

	// One section and one case created, once each
	require.Equal(t, 1, fake.addSectionCalls)
	require.Equal(t, 1, fake.addCaseCalls)
	require.Equal(t, "TestCart", fake.sections[0].Name)
	require.Equal(t, "test_a", fake.cases[0].Title)

	// One batch with exactly one entry, status from the last (firefox) record
	require.Len(t, fake.batches, 1)
	require.Len(t, fake.batches[0], 1)
	require.Equal(t, StatusPassed, fake.batches[0][0].StatusID)
	require.Equal(t, fake.cases[0].ID, fake.batches[0][0].CaseID)

	require.Equal(t, 999, outcome.RunID)
	require.Equal(t, 1, outcome.Submitted)
	require.Equal(t, StateDone, sync.State())
}

func TestSync_ProjectNotFound(t *testing.T) {
	t.Parallel()

	fake := newFakeTestRail(t)
	fake.addProject(1, "Another Project")
	sync := newTestSynchronizer(fake, t, nil)

	rep := &report.Report{Tests: []report.TestRecord{
		passingRecord("tests/test_cart.py::TestCart::test_a"),
	}}

	_, err := sync.Run(context.Background(), rep)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, StateFailed, sync.State())

	require.Zero(t, fake.addSectionCalls)
	require.Zero(t, fake.addCaseCalls)
	require.Zero(t, fake.addRunCalls)
}

func TestSync_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	fake := newFakeTestRail(t)
	fake.addProject(1, "Web App")

	rep := &report.Report{Tests: []report.TestRecord{
		passingRecord("tests/test_cart.py::TestCart::test_a"),
		passingRecord("tests/test_cart.py::TestCart::test_b"),
	}}

	first := newTestSynchronizer(fake, t, nil)
	_, err := first.Run(context.Background(), rep)
	require.NoError(t, err)
	require.Equal(t, 1, fake.addSectionCalls)
	require.Equal(t, 2, fake.addCaseCalls)

	// Second sync against the now-reconciled remote: listings and run
	// creation only, zero creations.
	srv := fake.server()
	second := NewSynchronizer(testConfig(srv.URL), newTestLogger())
	_, err = second.Run(context.Background(), rep)
	require.NoError(t, err)

	require.Equal(t, 1, fake.addSectionCalls)
	require.Equal(t, 2, fake.addCaseCalls)
	require.Equal(t, 2, fake.addRunCalls)
	require.Len(t, fake.batches, 2)
}

func TestSync_FailureCommentsAndStatuses(t *testing.T) {
	t.Parallel()

	fake := newFakeTestRail(t)
	fake.addProject(1, "Web App")
	sync := newTestSynchronizer(fake, t, nil)

	rep := &report.Report{Tests: []report.TestRecord{
		passingRecord("tests/test_cart.py::TestCart::test_ok"),
		{
			NodeID:  "tests/test_cart.py::TestCart::test_broken",
			Outcome: "failed",
			Call:    &report.Phase{Crash: &report.Crash{Message: "AssertionError: empty cart"}},
		},
		{NodeID: "tests/test_cart.py::TestCart::test_flaky", Outcome: "skipped"},
	}}

	outcome, err := sync.Run(context.Background(), rep)
	require.NoError(t, err)
	require.Equal(t, 3, outcome.Submitted)

	require.Len(t, fake.batches, 1)
	batch := fake.batches[0]
	require.Len(t, batch, 3)

	require.Equal(t, StatusPassed, batch[0].StatusID)
	require.Empty(t, batch[0].Comment)

	require.Equal(t, StatusFailed, batch[1].StatusID)
	require.Equal(t, "AssertionError: empty cart", batch[1].Comment)

	require.Equal(t, StatusBlocked, batch[2].StatusID)
	require.Empty(t, batch[2].Comment)
}

func TestSync_RunNameDefaultsToTimestamp(t *testing.T) {
	t.Parallel()

	fake := newFakeTestRail(t)
	fake.addProject(1, "Web App")
	sync := newTestSynchronizer(fake, t, nil)
	sync.now = func() time.Time {
		return time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	}

	rep := &report.Report{Tests: []report.TestRecord{
		passingRecord("tests/test_cart.py::TestCart::test_a"),
	}}

	_, err := sync.Run(context.Background(), rep)
	require.NoError(t, err)
	require.Equal(t, "Automation Run - 2026-08-31 14:30:00", fake.lastRunPayload["name"])
}

func TestSync_ConfiguredRunNameAndSuite(t *testing.T) {
	t.Parallel()

	fake := newFakeTestRail(t)
	fake.addProject(1, "Web App")
	sync := newTestSynchronizer(fake, t, func(cfg *config.TestRail) {
		cfg.RunName = "Nightly Regression"
		cfg.RunDescription = "Scheduled run"
		cfg.SuiteID = 7
	})

	rep := &report.Report{Tests: []report.TestRecord{
		passingRecord("tests/test_cart.py::TestCart::test_a"),
	}}

	_, err := sync.Run(context.Background(), rep)
	require.NoError(t, err)

	require.Equal(t, "Nightly Regression", fake.lastRunPayload["name"])
	require.Equal(t, "Scheduled run", fake.lastRunPayload["description"])
	require.Equal(t, float64(7), fake.lastRunPayload["suite_id"])
	require.Equal(t, "/api/v2/get_sections/1&suite_id=7", fake.lastSuiteQuery)
}
