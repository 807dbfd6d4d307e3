package testrail

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

const (
	testUsername = "qa@example.com"
	testAPIKey   = "secret-key"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeTestRail is an in-memory TestRail API double. The real API routes
// everything through index.php with the API path in the query string, so
// dispatch happens on the raw query.
type fakeTestRail struct {
	t  *testing.T
	mu sync.Mutex

	projects []Project
	sections []Section
	cases    []Case
	tests    []Test
	nextID   int

	// envelope switches listings to the pagination-envelope body shape
	envelope bool
	// rejectAuth forces 401 on every request
	rejectAuth bool
	// failListCases forces a 500 on get_cases
	failListCases bool

	listProjectCalls int
	listSectionCalls int
	listCaseCalls    int
	addSectionCalls  int
	addCaseCalls     int
	addRunCalls      int

	lastSuiteQuery   string
	lastRunPayload   map[string]any
	batches          [][]Result
	createdRun       *Run
	lastSingleCaseID int
	lastSingleResult map[string]any
}

func newFakeTestRail(t *testing.T) *fakeTestRail {
	return &fakeTestRail{t: t, nextID: 100}
}

func (f *fakeTestRail) addProject(id int, name string) {
	f.projects = append(f.projects, Project{ID: id, Name: name})
}

func (f *fakeTestRail) addSection(id int, name string) {
	f.sections = append(f.sections, Section{ID: id, Name: name})
}

func (f *fakeTestRail) addCase(id int, title string, sectionID int) {
	f.cases = append(f.cases, Case{ID: id, Title: title, SectionID: sectionID})
}

func (f *fakeTestRail) addTest(id, caseID, statusID int, title string) {
	f.tests = append(f.tests, Test{ID: id, CaseID: caseID, StatusID: statusID, Title: title})
}

func (f *fakeTestRail) server() *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	f.t.Cleanup(srv.Close)
	return srv
}

func (f *fakeTestRail) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, key, ok := r.BasicAuth()
	if f.rejectAuth || !ok || user != testUsername || key != testAPIKey {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Authentication failed"}`))
		return
	}

	q := r.URL.RawQuery
	switch {
	case q == "/api/v2/get_projects":
		f.listProjectCalls++
		f.writeListing(w, "projects", f.projects)

	case strings.HasPrefix(q, "/api/v2/get_sections/"):
		f.listSectionCalls++
		f.lastSuiteQuery = q
		f.writeListing(w, "sections", f.sections)

	case strings.HasPrefix(q, "/api/v2/add_section/"):
		f.addSectionCalls++
		var payload struct {
			Name    string `json:"name"`
			SuiteID int    `json:"suite_id"`
		}
		f.decode(r, &payload)
		f.nextID++
		section := Section{ID: f.nextID, Name: payload.Name, SuiteID: payload.SuiteID}
		f.sections = append(f.sections, section)
		f.writeJSON(w, section)

	case strings.HasPrefix(q, "/api/v2/get_cases/"):
		f.listCaseCalls++
		if f.failListCases {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "Internal error"}`))
			return
		}
		f.writeListing(w, "cases", f.cases)

	case strings.HasPrefix(q, "/api/v2/add_case/"):
		f.addCaseCalls++
		sectionID := trailingID(q)
		var payload struct {
			Title string `json:"title"`
		}
		f.decode(r, &payload)
		f.nextID++
		tc := Case{ID: f.nextID, Title: payload.Title, SectionID: sectionID}
		f.cases = append(f.cases, tc)
		f.writeJSON(w, tc)

	case strings.HasPrefix(q, "/api/v2/add_run/"):
		f.addRunCalls++
		f.decode(r, &f.lastRunPayload)
		name, _ := f.lastRunPayload["name"].(string)
		description, _ := f.lastRunPayload["description"].(string)
		run := Run{ID: 999, Name: name, Description: description, ProjectID: trailingID(q)}
		f.createdRun = &run
		f.writeJSON(w, run)

	case strings.HasPrefix(q, "/api/v2/add_result_for_case/"):
		f.lastSingleCaseID = trailingID(q)
		f.decode(r, &f.lastSingleResult)
		status, _ := f.lastSingleResult["status_id"].(float64)
		f.writeJSON(w, Result{CaseID: f.lastSingleCaseID, StatusID: int(status)})

	case strings.HasPrefix(q, "/api/v2/get_run/"):
		if f.createdRun == nil || f.createdRun.ID != trailingID(q) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "Field :run_id is not a valid test run."}`))
			return
		}
		f.writeJSON(w, *f.createdRun)

	case strings.HasPrefix(q, "/api/v2/get_tests/"):
		f.writeListing(w, "tests", f.tests)

	case strings.HasPrefix(q, "/api/v2/add_results_for_cases/"):
		var payload struct {
			Results []Result `json:"results"`
		}
		f.decode(r, &payload)
		f.batches = append(f.batches, payload.Results)
		f.writeJSON(w, payload.Results)

	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Unknown endpoint"}`))
	}
}

func (f *fakeTestRail) decode(r *http.Request, out any) {
	f.t.Helper()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		f.t.Fatalf("decoding request body: %v", err)
	}
}

func (f *fakeTestRail) writeJSON(w http.ResponseWriter, v any) {
	f.t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Fatalf("encoding response: %v", err)
	}
}

// writeListing serves a listing either bare or wrapped in a pagination
// envelope, depending on the envelope flag.
func (f *fakeTestRail) writeListing(w http.ResponseWriter, key string, items any) {
	if f.envelope {
		f.writeJSON(w, map[string]any{
			"offset": 0,
			"limit":  250,
			key:      items,
		})
		return
	}
	f.writeJSON(w, items)
}

func trailingID(q string) int {
	idx := strings.LastIndex(q, "/")
	var id int
	_, _ = fmt.Sscanf(q[idx+1:], "%d", &id)
	return id
}
