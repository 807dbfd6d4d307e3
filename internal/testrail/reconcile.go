package testrail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ReconcileResult is what the reconciler hands to run creation.
type ReconcileResult struct {
	// CaseIDs holds the resolved case ID of every input TestInfo, in input
	// order. Duplicates appear when several records reduce to one case.
	CaseIDs []int
	// CaseInfo maps each case ID to the TestInfo that most recently resolved
	// to it. On duplicates the last record in input order wins.
	CaseInfo map[int]TestInfo

	SectionsCreated int
	CasesCreated    int
}

// Reconciler ensures every section and case referenced by the report exists
// remotely, creating only what is missing. The name maps are built from one
// listing each and extended by successful creations, so no name is looked up
// remotely twice and no name is created twice within one sync.
type Reconciler struct {
	client    *Client
	log       logrus.FieldLogger
	projectID int
	suiteID   int

	sections map[string]int
	cases    map[string]int
}

// NewReconciler builds a reconciler scoped to one project (and optional suite).
// Instances are single-use: one Reconcile call per sync operation.
func NewReconciler(client *Client, log logrus.FieldLogger, projectID, suiteID int) *Reconciler {
	return &Reconciler{
		client:    client,
		log:       log,
		projectID: projectID,
		suiteID:   suiteID,
	}
}

// Reconcile resolves every TestInfo to a case ID, creating missing sections
// and cases along the way. The first listing or creation failure aborts the
// whole reconciliation; anything already created stays on the remote side.
//
// Case titles are the dedup key. If two records share a title but name
// different sections, the case is created once, under whichever section is
// resolved first.
func (r *Reconciler) Reconcile(ctx context.Context, infos []TestInfo) (*ReconcileResult, error) {
	if err := r.loadMaps(ctx); err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		CaseIDs:  make([]int, 0, len(infos)),
		CaseInfo: make(map[int]TestInfo, len(infos)),
	}

	for _, info := range infos {
		sectionID, sectionCreated, err := r.resolveSection(ctx, info.SectionName)
		if err != nil {
			return nil, err
		}
		if sectionCreated {
			result.SectionsCreated++
		}

		caseID, caseCreated, err := r.resolveCase(ctx, sectionID, info.TestName)
		if err != nil {
			return nil, err
		}
		if caseCreated {
			result.CasesCreated++
		}

		result.CaseIDs = append(result.CaseIDs, caseID)
		result.CaseInfo[caseID] = info
	}

	r.log.WithFields(logrus.Fields{
		"cases":            len(result.CaseInfo),
		"cases_created":    result.CasesCreated,
		"sections_created": result.SectionsCreated,
	}).Debug("reconciled hierarchy")

	return result, nil
}

// loadMaps lists remote sections and cases once each and indexes them by name.
func (r *Reconciler) loadMaps(ctx context.Context) error {
	sections, err := r.client.GetSections(ctx, r.projectID, r.suiteID)
	if err != nil {
		return err
	}
	r.sections = make(map[string]int, len(sections))
	for _, s := range sections {
		r.sections[s.Name] = s.ID
	}

	cases, err := r.client.GetCases(ctx, r.projectID, r.suiteID)
	if err != nil {
		return err
	}
	r.cases = make(map[string]int, len(cases))
	for _, c := range cases {
		r.cases[c.Title] = c.ID
	}

	return nil
}

func (r *Reconciler) resolveSection(ctx context.Context, name string) (id int, created bool, err error) {
	if id, ok := r.sections[name]; ok {
		return id, false, nil
	}

	section, err := r.client.AddSection(ctx, r.projectID, name, r.suiteID)
	if err != nil {
		return 0, false, err
	}
	r.sections[name] = section.ID
	return section.ID, true, nil
}

func (r *Reconciler) resolveCase(ctx context.Context, sectionID int, title string) (id int, created bool, err error) {
	if id, ok := r.cases[title]; ok {
		return id, false, nil
	}

	tc, err := r.client.AddCase(ctx, sectionID, title, nil)
	if err != nil {
		return 0, false, err
	}
	r.cases[title] = tc.ID
	return tc.ID, true, nil
}
