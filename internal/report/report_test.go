package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleReport = `{
	"created": 1700000000,
	"duration": 90.5,
	"summary": {"total": 3, "passed": 1, "failed": 1, "skipped": 1},
	"tests": [
		{
			"nodeid": "tests/test_cart.py::TestCart::test_add[chromium]",
			"outcome": "passed",
			"setup": {"duration": 0.1},
			"call": {"duration": 1.4},
			"teardown": {"duration": 0.5}
		},
		{
			"nodeid": "tests/test_cart.py::TestCart::test_remove",
			"outcome": "failed",
			"call": {
				"duration": 2.0,
				"crash": {"message": "AssertionError: item still present"},
				"longrepr": "def test_remove():..."
			}
		},
		{
			"nodeid": "tests/test_login.py::test_sso",
			"outcome": "skipped"
		}
	]
}`

func writeReport(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test_summary.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ParsesReport(t *testing.T) {
	t.Parallel()

	rep, err := Load(writeReport(t, sampleReport))
	require.NoError(t, err)

	require.Equal(t, 3, rep.Summary.Total)
	require.Equal(t, 1, rep.Summary.Passed)
	require.Len(t, rep.Tests, 3)
	require.Equal(t, "tests/test_cart.py::TestCart::test_add[chromium]", rep.Tests[0].NodeID)
	require.Equal(t, "skipped", rep.Tests[2].Outcome)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := Load(writeReport(t, "{not json"))

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestReport_Times(t *testing.T) {
	t.Parallel()

	rep, err := Load(writeReport(t, sampleReport))
	require.NoError(t, err)

	require.Equal(t, time.Unix(1700000000, 0), rep.StartTime())
	require.Equal(t, time.Unix(1700000000, 0).Add(90500*time.Millisecond), rep.EndTime())
}

func TestTestRecord_TotalDuration(t *testing.T) {
	t.Parallel()

	rep, err := Load(writeReport(t, sampleReport))
	require.NoError(t, err)

	require.Equal(t, 2*time.Second, rep.Tests[0].TotalDuration())
	require.Equal(t, 2*time.Second, rep.Tests[1].TotalDuration())
	require.Equal(t, time.Duration(0), rep.Tests[2].TotalDuration())
}

func TestTestRecord_FailureReason(t *testing.T) {
	t.Parallel()

	rep, err := Load(writeReport(t, sampleReport))
	require.NoError(t, err)

	require.Empty(t, rep.Tests[0].FailureReason())
	require.Equal(t, "AssertionError: item still present", rep.Tests[1].FailureReason())
	require.Empty(t, rep.Tests[2].FailureReason())

	longreprOnly := TestRecord{
		Outcome: "failed",
		Call:    &Phase{Longrepr: "traceback"},
	}
	require.Equal(t, "traceback", longreprOnly.FailureReason())
}
