package output

import (
	"embed"
	"io"
	"os"
	"text/template"

	"go.trai.ch/zerr"
	"notashelf.dev/flakecheck/internal/policy"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.md.tmpl"))

type summaryData struct {
	Lockfile  string
	Clean     bool
	NumIssues int
	IssueWord string

	Disallowed    []policy.Issue
	Outdated      []policy.Issue
	NonUpstream   []policy.Issue
	MaxDays       int
	SupportedRefs []string

	Condition            string
	InputsWithViolations []string
}

func newSummaryData(report Report) summaryData {
	data := summaryData{
		Lockfile:  report.Lockfile,
		Clean:     report.Clean(),
		NumIssues: len(report.Issues),
		IssueWord: issueWord(len(report.Issues)),
		Condition: report.Condition,
	}

	if report.Condition != "" {
		for _, issue := range policy.Filter(report.Issues, policy.KindViolation) {
			data.InputsWithViolations = append(data.InputsWithViolations, issue.Input)
		}
		return data
	}

	data.Disallowed = policy.Filter(report.Issues, policy.KindDisallowed)
	data.Outdated = policy.Filter(report.Issues, policy.KindOutdated)
	data.NonUpstream = policy.Filter(report.Issues, policy.KindNonUpstream)
	data.MaxDays = report.MaxDays
	data.SupportedRefs = report.AllowedRefs
	return data
}

// RenderMarkdown writes a Markdown summary of the report to w.
func RenderMarkdown(w io.Writer, report Report) error {
	name := "summary.standard.md.tmpl"
	if report.Condition != "" {
		name = "summary.cel.md.tmpl"
	}

	if err := templates.ExecuteTemplate(w, name, newSummaryData(report)); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to render summary"), "template", name)
	}
	return nil
}

// AppendStepSummary appends the Markdown summary to the file at path,
// usually $GITHUB_STEP_SUMMARY.
func AppendStepSummary(path string, report Report) error {
	if path == "" {
		return zerr.New("no step summary file given, is GITHUB_STEP_SUMMARY set?")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path is provided by the CI runner
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open step summary"), "path", path)
	}
	defer f.Close()

	if err := RenderMarkdown(f, report); err != nil {
		return zerr.With(err, "path", path)
	}
	return nil
}
