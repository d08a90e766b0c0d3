package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// TableFormatter renders a Report as a go-pretty table.
type TableFormatter struct {
	title     string
	showTests bool
	colored   bool
}

// NewTableFormatter creates a TableFormatter. showTests adds one row per
// clause result under each case.
func NewTableFormatter(title string, showTests, colored bool) *TableFormatter {
	return &TableFormatter{
		title:     title,
		showTests: showTests,
		colored:   colored,
	}
}

// Render writes the table for report to w. wallClock is shown in the title.
func (f *TableFormatter) Render(w io.Writer, report *Report, wallClock time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s: %s (%s)", f.title, report.Collection, formatDuration(wallClock)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, class := range report.Classes {
		s := class.Summary()
		t.AppendRow(table.Row{
			"Class",
			class.Name,
			formatDuration(s.Time),
			"-", // a class is not a result
			s.Passed(),
			s.Failed,
			s.Skipped,
			getResultString(class.Status()),
			"",
		})

		for i, cr := range class.Cases {
			prefix := "├─"
			if i == len(class.Cases)-1 {
				prefix = "└─"
			}
			t.AppendRow(table.Row{
				"Case",
				fmt.Sprintf("%s %s", prefix, cr.DisplayName),
				formatDuration(cr.Summary.Time),
				cr.Summary.Total,
				cr.Summary.Passed(),
				cr.Summary.Failed,
				cr.Summary.Skipped,
				getResultString(cr.Status()),
				"",
			})

			if !f.showTests {
				continue
			}
			for j, tr := range cr.Tests {
				subPrefix := "   ├─"
				if j == len(cr.Tests)-1 {
					subPrefix = "   └─"
				}
				t.AppendRow(table.Row{
					"",
					fmt.Sprintf("%s %s", subPrefix, tr.DisplayName),
					formatDuration(tr.Elapsed),
					"1",
					boolToInt(tr.Status == types.TestStatusPass),
					boolToInt(tr.Status == types.TestStatusFail),
					boolToInt(tr.Status == types.TestStatusSkip),
					getResultString(tr.Status),
					firstLine(tr.Error),
				})
			}
		}
		t.AppendSeparator()
	}

	status := report.Status()
	if f.colored {
		switch status {
		case types.TestStatusPass:
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		case types.TestStatusSkip:
			t.SetStyle(table.StyleColoredBlackOnYellowWhite)
		default:
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		}
	} else {
		t.SetStyle(table.StyleLight)
	}

	total := report.Summary()
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(total.Time),
		total.Total,
		total.Passed(),
		total.Failed,
		total.Skipped,
		getResultString(status),
		"",
	})

	t.Render()
}

// String renders the table uncolored.
func (f *TableFormatter) String(report *Report, wallClock time.Duration) string {
	var sb strings.Builder
	plain := *f
	plain.colored = false
	plain.Render(&sb, report, wallClock)
	return sb.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusError:
		return "! error"
	default:
		return "✗ fail"
	}
}

// formatDuration formats a duration in seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
