package reporting

import (
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// TranscriptFormatter renders a Report as plain indented text. Durations are
// left out unless requested, so the transcript of a run is stable.
type TranscriptFormatter struct {
	IncludeDurations bool
	IncludeOutput    bool
}

// Format renders report.
func (f TranscriptFormatter) Format(report *Report) string {
	var sb strings.Builder

	total := report.Summary()
	fmt.Fprintf(&sb, "collection %s: %s (%s)\n", report.Collection, report.Status(), f.counts(total))

	for _, class := range report.Classes {
		fmt.Fprintf(&sb, "  class %s: %s (%s)\n", class.Name, class.Status(), f.counts(class.Summary()))
		for _, cr := range class.Cases {
			fmt.Fprintf(&sb, "    case %s %q: %s\n", cr.ID, cr.DisplayName, cr.Status())
			for _, tr := range cr.Tests {
				fmt.Fprintf(&sb, "      %-5s %s", strings.ToUpper(tr.Status.String()), tr.DisplayName)
				if f.IncludeDurations {
					fmt.Fprintf(&sb, " (%s)", formatDuration(tr.Elapsed))
				}
				sb.WriteString("\n")
				if tr.Reason != "" {
					writeIndented(&sb, "reason: ", tr.Reason)
				}
				if tr.Error != "" {
					writeIndented(&sb, "error: ", tr.Error)
				}
				if f.IncludeOutput && tr.Output != "" {
					writeIndented(&sb, "output: ", tr.Output)
				}
			}
		}
	}
	return sb.String()
}

func (f TranscriptFormatter) counts(s types.RunSummary) string {
	c := fmt.Sprintf("total=%d passed=%d failed=%d skipped=%d", s.Total, s.Passed(), s.Failed, s.Skipped)
	if f.IncludeDurations {
		c += " time=" + formatDuration(s.Time)
	}
	return c
}

func writeIndented(sb *strings.Builder, label, body string) {
	const indent = "            "
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	for i, line := range lines {
		if i == 0 {
			sb.WriteString(indent + label + line + "\n")
			continue
		}
		sb.WriteString(indent + strings.Repeat(" ", len(label)) + line + "\n")
	}
}
