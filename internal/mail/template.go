package mail

import (
	"bytes"
	"fmt"
	"text/template"
)

// bodyTemplate is the plain-text summary mail sent after a suite run.
var bodyTemplate = template.Must(template.New("body").Parse(`Hello Team,

Below are the automation test results for the latest build {{.BuildVersion}}:

Execution Summary
-----------------
Suite Name:     {{.SuiteName}}
Execution Date: {{.Date}}
Duration:       {{.Duration}}
Branch:         {{.Branch}}
Triggered By:   {{.TriggeredBy}}

Test Statistics
---------------
Total Tests: {{.Total}}
Passed:      {{.Passed}}
Failed:      {{.Failed}}
Skipped:     {{.Skipped}}
Failure Rate: {{.FailRate}}%

The HTML report is attached for your review.

Regards,
{{.SenderName}}
{{.SenderPosition}}
`))

// TemplateData feeds the summary mail body.
type TemplateData struct {
	SuiteName      string
	BuildVersion   string
	Date           string
	Duration       string
	Branch         string
	TriggeredBy    string
	Total          int
	Passed         int
	Failed         int
	Skipped        int
	FailRate       string
	SenderName     string
	SenderPosition string
}

// Render produces the mail body from the template data.
func Render(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render mail body: %w", err)
	}
	return buf.String(), nil
}

// failRate formats the failed/total ratio as a percentage with one decimal.
func failRate(failed, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(failed)/float64(total)*100)
}
