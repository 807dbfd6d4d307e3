package testrail

import (
	"strings"

	"github.com/venturedive/qa-sync/internal/report"
)

// TestRail result status IDs.
const (
	StatusPassed   = 1
	StatusBlocked  = 2
	StatusUntested = 3
	StatusRetest   = 4
	StatusFailed   = 5
)

// DefaultSection is where cases land when a node ID carries no class segment.
const DefaultSection = "General"

// TestInfo is the placement and outcome derived from one report record.
type TestInfo struct {
	SectionName   string
	TestName      string
	Status        int
	FailureReason string
	NodeID        string
}

// ExtractInfo derives section name, case title and status from a test record.
// It is a pure function over the record: no network or file access.
//
// A pytest node ID looks like
// tests/test_cart.py::TestCart::test_added_item_appears_in_cart[chromium].
// The second `::` segment becomes the section, the last segment minus any
// trailing parametrization bracket becomes the case title.
func ExtractInfo(rec report.TestRecord) TestInfo {
	parts := strings.Split(rec.NodeID, "::")

	sectionName := DefaultSection
	if len(parts) > 1 {
		sectionName = parts[1]
	}

	testName := parts[len(parts)-1]
	if idx := strings.Index(testName, "["); idx >= 0 {
		testName = testName[:idx]
	}

	var status int
	switch rec.Outcome {
	case "passed":
		status = StatusPassed
	case "failed":
		status = StatusFailed
	case "skipped":
		status = StatusBlocked
	default:
		status = StatusUntested
	}

	return TestInfo{
		SectionName:   sectionName,
		TestName:      testName,
		Status:        status,
		FailureReason: rec.FailureReason(),
		NodeID:        rec.NodeID,
	}
}
