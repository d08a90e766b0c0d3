package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/infra/op-scenario/metrics"
	"github.com/ethereum-optimism/infra/op-scenario/reporting"
	"github.com/ethereum-optimism/infra/op-scenario/runner"
)

// MetricsReporter is responsible for reporting metrics from collection results.
type MetricsReporter interface {
	ReportResults(result *runner.CollectionResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the collection result to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(result *runner.CollectionResult) {
	metrics.RecordCollection(result.Collection, result.RunID, result.Summary, result.WallClockTime)
}

// ResultPrinter renders the report of a collection run.
type ResultPrinter struct {
	out           io.Writer
	table         *reporting.TableFormatter
	transcript    reporting.TranscriptFormatter
	transcriptDir string
}

// NewResultPrinter creates a ResultPrinter writing tables to out. When
// transcriptDir is set, a transcript of every run is written below it.
func NewResultPrinter(out io.Writer, showTests bool, transcriptDir string) *ResultPrinter {
	return &ResultPrinter{
		out:           out,
		table:         reporting.NewTableFormatter("Scenario Results", showTests, out == os.Stdout),
		transcriptDir: transcriptDir,
	}
}

// Print writes the results table for result and, if enabled, its transcript.
func (p *ResultPrinter) Print(report *reporting.Report, result *runner.CollectionResult) error {
	p.table.Render(p.out, report, result.WallClockTime)
	fmt.Fprintln(p.out, result.Summary.String())
	if p.transcriptDir == "" {
		return nil
	}
	return p.writeTranscript(report, result)
}

func (p *ResultPrinter) writeTranscript(report *reporting.Report, result *runner.CollectionResult) error {
	dir := filepath.Join(p.transcriptDir, "run-"+result.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create transcript directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, result.Collection+".log")
	content := p.transcript.Format(report)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
