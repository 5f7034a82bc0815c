package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/llama-alma/calpath/pkg/resolver"
)

type reportJSON struct {
	Root     string             `json:"root"`
	Paths    []string           `json:"paths"`
	Outcomes []resolver.Outcome `json:"outcomes"`
	Summary  reportSummaryJSON  `json:"summary"`
}

type reportSummaryJSON struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

func printReportText(cmd *cobra.Command, report *resolver.Report) {
	for _, p := range report.Paths() {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
}

// printReportPython prints the resolved paths the way Python prints a list of
// strings, so the output can be pasted into a pipeline script.
func printReportPython(cmd *cobra.Command, report *resolver.Report) {
	paths := report.Paths()
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = pyQuote(p)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "["+strings.Join(quoted, ", ")+"]")
}

// pyQuote follows repr: single quotes unless s contains a single quote and
// no double quote.
func pyQuote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`)
		return `"` + r.Replace(s) + `"`
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`)
	return "'" + r.Replace(s) + "'"
}

func printReportJSON(cmd *cobra.Command, report *resolver.Report) error {
	paths := report.Paths()
	out := reportJSON{
		Root:     report.Root,
		Paths:    paths,
		Outcomes: report.Outcomes,
		Summary: reportSummaryJSON{
			Total:      len(report.Outcomes),
			Resolved:   len(paths),
			Unresolved: len(report.Outcomes) - len(paths),
		},
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSummary(cmd *cobra.Command, report *resolver.Report) {
	cmd.PrintErrln(bold("Targets under %s:", report.Root))

	width := 0
	for _, o := range report.Outcomes {
		width = max(width, len(o.Target))
	}

	for _, o := range report.Outcomes {
		name := o.Target + strings.Repeat(" ", width-len(o.Target))
		switch o.Kind {
		case resolver.Resolved:
			cmd.PrintErrf("  %s %s  %s%s\n", bool2Text(true), name, o.Path, descentsText(o.Descents))
		case resolver.NotFound:
			cmd.PrintErrf("  %s %s  %s %s\n", bool2Text(false), name, color.RedString("not found:"), o.Cursor)
		case resolver.Ambiguous:
			cmd.PrintErrf("  %s %s  %s %s %s\n", bool2Text(false), name, color.YellowString("ambiguous:"), o.Cursor, subdirsText(o.Subdirs))
		case resolver.CycleDetected:
			cmd.PrintErrf("  %s %s  %s %s\n", bool2Text(false), name, color.RedString("cycle:"), o.Cursor)
		}
	}

	resolved := len(report.Paths())
	cmd.PrintErrf("Resolved: %s\n", bold("%d/%d", resolved, len(report.Outcomes)))
}

func descentsText(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return " (1 descent)"
	default:
		return fmt.Sprintf(" (%d descents)", n)
	}
}

func subdirsText(subdirs []string) string {
	if len(subdirs) == 0 {
		return "(no subdirectories)"
	}
	return "(" + strings.Join(subdirs, ", ") + ")"
}
