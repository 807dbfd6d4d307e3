// Package report reads the pytest JSON summary report produced by the
// automation suite. The report is loaded once per invocation and passed around
// as an immutable value.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// UnavailableError indicates the report file is missing or unparsable.
// It is returned before any downstream client touches the network.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("report unavailable at %s: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Summary holds the aggregate counters from the report header.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Crash is the short failure description pytest attaches to a failed phase.
type Crash struct {
	Message string `json:"message"`
}

// Phase holds the timing and failure payload of one test phase
// (setup, call or teardown).
type Phase struct {
	Duration float64 `json:"duration"`
	Crash    *Crash  `json:"crash,omitempty"`
	Longrepr string  `json:"longrepr,omitempty"`
}

// TestRecord is a single per-test entry from the report. Records are owned by
// the Report and treated as read-only.
type TestRecord struct {
	NodeID   string `json:"nodeid"`
	Outcome  string `json:"outcome"`
	Setup    *Phase `json:"setup,omitempty"`
	Call     *Phase `json:"call,omitempty"`
	Teardown *Phase `json:"teardown,omitempty"`
}

// Report is the parsed pytest JSON report.
type Report struct {
	Created  float64      `json:"created"`
	Duration float64      `json:"duration"`
	Summary  Summary      `json:"summary"`
	Tests    []TestRecord `json:"tests"`
}

// Load reads and parses the report file at path.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UnavailableError{Path: path, Err: err}
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, &UnavailableError{Path: path, Err: err}
	}

	return &rep, nil
}

// StartTime returns the suite execution start time.
func (r *Report) StartTime() time.Time {
	return time.Unix(int64(r.Created), 0)
}

// EndTime returns the suite execution end time (start plus total duration).
func (r *Report) EndTime() time.Time {
	return r.StartTime().Add(time.Duration(r.Duration * float64(time.Second)))
}

// TotalDuration sums the setup, call and teardown durations of a record.
func (t *TestRecord) TotalDuration() time.Duration {
	var secs float64
	for _, phase := range []*Phase{t.Setup, t.Call, t.Teardown} {
		if phase != nil {
			secs += phase.Duration
		}
	}
	return time.Duration(secs * float64(time.Second))
}

// FailureReason returns the failure text for a failed record: the short crash
// message when present, otherwise the long representation, otherwise "".
func (t *TestRecord) FailureReason() string {
	if t.Outcome != "failed" || t.Call == nil {
		return ""
	}
	if t.Call.Crash != nil && t.Call.Crash.Message != "" {
		return t.Call.Crash.Message
	}
	return t.Call.Longrepr
}
