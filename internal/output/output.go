package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/zerr"
	"notashelf.dev/flakecheck/internal/policy"
	util "notashelf.dev/flakecheck/internal/util"
)

var formats = []string{"json", "plain", "pretty"}

// ValidateOutputFormat reports whether format is one Print understands.
func ValidateOutputFormat(format string) error {
	if slices.Contains(formats, format) {
		return nil
	}
	return zerr.With(
		zerr.New(fmt.Sprintf("invalid output format %q, must be one of: %s", format, strings.Join(formats, ", "))),
		"format", format,
	)
}

// Report is the outcome of one run.
type Report struct {
	Lockfile string
	Issues   []policy.Issue

	// Condition is set when the run used a CEL condition instead of the
	// fixed checks.
	Condition string

	MaxDays     int
	AllowedRefs []string

	// Sources maps input names to the flake reference they are locked to.
	// Verbose output shows it below each issue.
	Sources map[string]string
}

func (r Report) Clean() bool {
	return len(r.Issues) == 0
}

type Options struct {
	OutputFormat string
	Verbose      bool
	FailMode     bool
	Quiet        bool
}

// ShouldFail reports whether the run should exit with an error.
func ShouldFail(options Options, report Report) bool {
	return options.FailMode && !report.Clean()
}

// Message describes an issue in one sentence.
func Message(issue policy.Issue, maxDays int) string {
	input := issue.Input
	switch issue.Kind {
	case policy.KindDisallowed:
		return fmt.Sprintf("the `%s` input uses the non-supported Git branch `%s` for Nixpkgs", input, issue.Reference)
	case policy.KindOutdated:
		return fmt.Sprintf("the `%s` input is %d days old (the max allowed is %d)", input, issue.NumDaysOld, maxDays)
	case policy.KindNonUpstream:
		return fmt.Sprintf("the `%s` input has the non-upstream owner `%s` rather than `NixOS` (upstream)", input, issue.Owner)
	case policy.KindViolation:
		return fmt.Sprintf("the `%s` input violates the condition", input)
	default:
		return fmt.Sprintf("the `%s` input has an issue", input)
	}
}

// Print writes the report to w in the requested format.
func Print(w io.Writer, report Report, options Options) error {
	if options.Quiet {
		return nil
	}

	switch options.OutputFormat {
	case "json":
		return printJSON(w, report)
	case "plain":
		printPlainOutput(w, report, options)
	default:
		printFormattedOutput(w, report, options)
	}
	return nil
}

type jsonReport struct {
	Lockfile  string         `json:"lockfile"`
	Clean     bool           `json:"clean"`
	Condition string         `json:"condition,omitempty"`
	Issues    []policy.Issue `json:"issues"`
}

func printJSON(w io.Writer, report Report) error {
	issues := report.Issues
	if issues == nil {
		issues = []policy.Issue{}
	}

	jsonData, err := json.MarshalIndent(jsonReport{
		Lockfile:  report.Lockfile,
		Clean:     report.Clean(),
		Condition: report.Condition,
		Issues:    issues,
	}, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "error marshaling JSON output")
	}

	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

func printFormattedOutput(w io.Writer, report Report, options Options) {
	var (
		headerStyle, successStyle, warningStyle, errorStyle, infoStyle,
		dimStyle, boldStyle, inputStyle lipgloss.Style
	)

	var successIcon, warningIcon, errorIcon, infoIcon string

	if util.IsNoColor() {
		emptyStyle := lipgloss.NewStyle()
		headerStyle = emptyStyle
		successStyle = emptyStyle
		warningStyle = emptyStyle
		errorStyle = emptyStyle
		infoStyle = emptyStyle
		dimStyle = emptyStyle
		boldStyle = emptyStyle
		inputStyle = emptyStyle

		successIcon = "[✓]"
		warningIcon = "[!]"
		errorIcon = "[✗]"
		infoIcon = "[i]"
	} else {
		headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true).
			Underline(true)

		successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

		warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

		errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

		infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

		dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

		boldStyle = lipgloss.NewStyle().
			Bold(true)

		inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")).
			Italic(true)

		successIcon = "✓"
		warningIcon = "⚠"
		errorIcon = "✗"
		infoIcon = "ℹ"
	}

	// Issues fail the run in fail mode, otherwise they are only warnings
	issueStyle, issueIcon := warningStyle, warningIcon
	if options.FailMode {
		issueStyle, issueIcon = errorStyle, errorIcon
	}

	fmt.Fprintln(w, headerStyle.Render("Flake Checker Report"))
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("%s Scanned %s", infoIcon, report.Lockfile)))

	if report.Clean() {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("%s No issues found", successIcon)))
		return
	}

	fmt.Fprintln(w, issueStyle.Render(fmt.Sprintf("%s Found %d %s", issueIcon, len(report.Issues), issueWord(len(report.Issues)))))
	fmt.Fprintln(w)

	if report.Condition != "" {
		fmt.Fprintln(w, boldStyle.Render("Condition:"))
		fmt.Fprintf(w, "   %s\n\n", dimStyle.Render(report.Condition))
		fmt.Fprintln(w, boldStyle.Render("Inputs violating the condition:"))
		for i, issue := range report.Issues {
			fmt.Fprintf(w, "   %s %s\n", dimStyle.Render(connector(i, len(report.Issues))), inputStyle.Render(issue.Input))
			if src := report.source(issue.Input, options); src != "" {
				fmt.Fprintf(w, "      %s\n", dimStyle.Render("locked: "+src))
			}
		}
		return
	}

	for i, issue := range report.Issues {
		fmt.Fprintf(w, "   %s %s\n", dimStyle.Render(connector(i, len(report.Issues))), issueStyle.Render(Message(issue, report.MaxDays)))
		if src := report.source(issue.Input, options); src != "" {
			fmt.Fprintf(w, "      %s\n", dimStyle.Render("locked: "+src))
		}
	}

	if options.Verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, dimStyle.Render("Supported branches: "+strings.Join(report.AllowedRefs, ", ")))
	}
}

func printPlainOutput(w io.Writer, report Report, options Options) {
	if report.Clean() {
		fmt.Fprintf(w, "The flake checker scanned %s and found no issues\n", report.Lockfile)
		return
	}

	if report.Condition != "" {
		fmt.Fprintf(w, "You supplied this CEL condition for your flake:\n\n%s\n", report.Condition)
		fmt.Fprintln(w, "The following inputs violate that condition:")
		fmt.Fprintln(w)
		for _, issue := range report.Issues {
			fmt.Fprintf(w, "* %s\n", issue.Input)
			if src := report.source(issue.Input, options); src != "" {
				fmt.Fprintf(w, "  locked: %s\n", src)
			}
		}
		return
	}

	level := "WARNING"
	if options.FailMode {
		level = "ERROR"
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "%s: %s\n", level, Message(issue, report.MaxDays))
		if src := report.source(issue.Input, options); src != "" {
			fmt.Fprintf(w, "  locked: %s\n", src)
		}
	}
}

// source is only shown in verbose output.
func (r Report) source(input string, options Options) string {
	if !options.Verbose {
		return ""
	}
	return r.Sources[input]
}

func connector(i, n int) string {
	if i == n-1 {
		return "└─"
	}
	return "├─"
}

func issueWord(n int) string {
	if n == 1 {
		return "issue"
	}
	return "issues"
}
