// Package testrail reconciles pytest results against a TestRail instance:
// it creates missing sections and cases, opens a run and submits the
// per-case statuses in one batch.
package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/venturedive/qa-sync/internal/config"
)

// TestRail API v2 endpoint templates. The whole API path rides in the query
// string, that is how the TestRail index.php dispatcher works.
const (
	epGetProjects        = "/index.php?/api/v2/get_projects"
	epGetSections        = "/index.php?/api/v2/get_sections/%d"
	epAddSection         = "/index.php?/api/v2/add_section/%d"
	epGetCases           = "/index.php?/api/v2/get_cases/%d"
	epAddCase            = "/index.php?/api/v2/add_case/%d"
	epAddRun             = "/index.php?/api/v2/add_run/%d"
	epAddResultForCase   = "/index.php?/api/v2/add_result_for_case/%d/%d"
	epAddResultsForCases = "/index.php?/api/v2/add_results_for_cases/%d"
	epGetRun             = "/index.php?/api/v2/get_run/%d"
	epGetTests           = "/index.php?/api/v2/get_tests/%d"
)

// Project is a TestRail project entry.
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Section is a grouping node in the case hierarchy.
type Section struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	SuiteID int    `json:"suite_id"`
}

// Case is a persistent test case definition.
type Case struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	SectionID int    `json:"section_id"`
}

// Run is a TestRail test run.
type Run struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProjectID   int    `json:"project_id"`
}

// Test is one case tracked inside a run.
type Test struct {
	ID       int    `json:"id"`
	CaseID   int    `json:"case_id"`
	StatusID int    `json:"status_id"`
	Title    string `json:"title"`
}

// Result is one submitted case outcome.
type Result struct {
	CaseID   int    `json:"case_id,omitempty"`
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment,omitempty"`
	Elapsed  string `json:"elapsed,omitempty"`
	Defects  string `json:"defects,omitempty"`
	Version  string `json:"version,omitempty"`
}

// RunSpec describes the run to create.
type RunSpec struct {
	CaseIDs      []int
	SuiteID      int
	Name         string
	Description  string
	MilestoneID  int
	AssignedToID int
}

// Client is the TestRail API gateway. All wire-protocol knowledge lives here;
// callers only see value types and the error taxonomy.
type Client struct {
	baseURL  string
	username string
	apiKey   string
	httpc    *http.Client
	log      logrus.FieldLogger
}

// NewClient validates the connection settings and probes the API once with an
// authenticating call so bad credentials fail fast. Calls are synchronous and
// never retried.
func NewClient(ctx context.Context, cfg config.TestRail, log logrus.FieldLogger) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	username := strings.TrimSpace(cfg.Username)
	apiKey := strings.TrimSpace(cfg.APIKey)

	if baseURL == "" || username == "" || apiKey == "" {
		return nil, ErrMissingConfig
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiKey:   apiKey,
		httpc:    &http.Client{},
		log:      log,
	}

	// Probe with get_projects, the one endpoint every account can reach.
	if _, err := c.GetProjects(ctx); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, &AuthError{Username: username, BaseURL: c.baseURL, Err: err}
		}
		return nil, err
	}

	c.log.WithField("base_url", c.baseURL).Debug("connected to TestRail")
	return c, nil
}

// GetProjects lists all projects visible to the account.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.getList(ctx, epGetProjects, "projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProjectByName scans the project listing for an exact name match.
// The first match wins.
func (c *Client) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	projects, err := c.GetProjects(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range projects {
		if p.Name == name {
			c.log.WithFields(logrus.Fields{"project": name, "id": p.ID}).Debug("resolved project")
			return &p, nil
		}
	}

	return nil, &NotFoundError{Kind: "project", Name: name}
}

// GetSections lists the sections of a project, optionally scoped to a suite.
func (c *Client) GetSections(ctx context.Context, projectID, suiteID int) ([]Section, error) {
	endpoint := fmt.Sprintf(epGetSections, projectID)
	if suiteID > 0 {
		endpoint += fmt.Sprintf("&suite_id=%d", suiteID)
	}

	var sections []Section
	if err := c.getList(ctx, endpoint, "sections", &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// AddSection creates a section in a project.
func (c *Client) AddSection(ctx context.Context, projectID int, name string, suiteID int) (*Section, error) {
	payload := map[string]any{"name": name}
	if suiteID > 0 {
		payload["suite_id"] = suiteID
	}

	var section Section
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(epAddSection, projectID), payload, &section); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"section": name, "id": section.ID}).Info("created section")
	return &section, nil
}

// GetCases lists the cases of a project, optionally scoped to a suite.
func (c *Client) GetCases(ctx context.Context, projectID, suiteID int) ([]Case, error) {
	endpoint := fmt.Sprintf(epGetCases, projectID)
	if suiteID > 0 {
		endpoint += fmt.Sprintf("&suite_id=%d", suiteID)
	}

	var cases []Case
	if err := c.getList(ctx, endpoint, "cases", &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// AddCase creates a case under a section. Extra TestRail fields
// (type_id, priority_id, refs, ...) can be passed through extra.
func (c *Client) AddCase(ctx context.Context, sectionID int, title string, extra map[string]any) (*Case, error) {
	payload := map[string]any{"title": title}
	for k, v := range extra {
		payload[k] = v
	}

	var tc Case
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(epAddCase, sectionID), payload, &tc); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"case": title, "id": tc.ID}).Info("created case")
	return &tc, nil
}

// AddRun creates a run covering the given case IDs.
func (c *Client) AddRun(ctx context.Context, projectID int, spec RunSpec) (*Run, error) {
	payload := map[string]any{
		"case_ids":    spec.CaseIDs,
		"include_all": false,
	}
	if spec.SuiteID > 0 {
		payload["suite_id"] = spec.SuiteID
	}
	if spec.Name != "" {
		payload["name"] = spec.Name
	}
	if spec.Description != "" {
		payload["description"] = spec.Description
	}
	if spec.MilestoneID > 0 {
		payload["milestone_id"] = spec.MilestoneID
	}
	if spec.AssignedToID > 0 {
		payload["assignedto_id"] = spec.AssignedToID
	}

	var run Run
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(epAddRun, projectID), payload, &run); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"run": run.Name, "id": run.ID, "cases": len(spec.CaseIDs)}).Info("created test run")
	return &run, nil
}

// AddResultForCase submits a single case result to a run.
func (c *Client) AddResultForCase(ctx context.Context, runID, caseID int, result Result) (*Result, error) {
	result.CaseID = 0 // the case rides in the URL, not the body

	var out Result
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(epAddResultForCase, runID, caseID), result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddResultsForCases submits many case results to a run in one call.
func (c *Client) AddResultsForCases(ctx context.Context, runID int, results []Result) error {
	payload := map[string]any{"results": results}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(epAddResultsForCases, runID), payload, nil); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{"run_id": runID, "results": len(results)}).Info("submitted results batch")
	return nil
}

// GetRun fetches a run by ID.
func (c *Client) GetRun(ctx context.Context, runID int) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(epGetRun, runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetTests lists the tests tracked in a run.
func (c *Client) GetTests(ctx context.Context, runID int) ([]Test, error) {
	var tests []Test
	if err := c.getList(ctx, fmt.Sprintf(epGetTests, runID), "tests", &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

// listing absorbs the two body shapes TestRail serves for list endpoints:
// a bare JSON array, or a pagination envelope wrapping the array under a
// named key. The ambiguity is resolved here and never leaks to callers.
type listing struct {
	key string
	out any
}

func (l *listing) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, l.out)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}

	raw, ok := envelope[l.key]
	if !ok {
		// Envelope without the expected key: treat as an empty listing.
		return nil
	}
	return json.Unmarshal(raw, l.out)
}

func (c *Client) getList(ctx context.Context, endpoint, key string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, &listing{key: key, out: out})
}

// do issues one authenticated request and decodes the response into out.
// Non-2xx responses become *APIError with the body attached; connection
// failures become *TransportError.
func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.SetBasicAuth(c.username, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Op: fmt.Sprintf("%s %s", method, endpoint), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: fmt.Sprintf("%s %s", method, endpoint), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: errorBody(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

// errorBody prefers the decoded "error" field TestRail puts in failure
// bodies, falling back to the raw text.
func errorBody(data []byte) string {
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	return strings.TrimSpace(string(data))
}

