package reporting

import (
	"context"
	"sort"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/runner"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// cleanupName is the display name of the result reported for a failed disposal.
const cleanupName = "cleanup"

// Recorder is a runner.MessageBus that builds a Report per collection from
// the messages it receives. It never rejects a message.
type Recorder struct {
	mu          sync.Mutex
	collections []string
	classes     map[string]map[string][]string // collection -> class -> case IDs
	cases       map[runner.CaseRef]*CaseReport
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		classes: make(map[string]map[string][]string),
		cases:   make(map[runner.CaseRef]*CaseReport),
	}
}

var _ runner.MessageBus = (*Recorder)(nil)

// Publish implements runner.MessageBus.
func (r *Recorder) Publish(_ context.Context, msg runner.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch m := msg.(type) {
	case runner.TestCaseDiscovered:
		r.caseFor(m.Ref(), m.DisplayName).Discovered = true
	case runner.TestCaseStarting:
		r.caseFor(m.Ref(), m.DisplayName)
	case runner.TestFinished:
		cr := r.caseFor(m.Ref(), "")
		tr := TestReport{
			DisplayName: m.DisplayName,
			Role:        m.Role,
			Status:      m.Status,
			Elapsed:     m.Elapsed,
			Output:      stripansi.Strip(m.Output),
		}
		if m.Err != nil {
			tr.Error = stripansi.Strip(m.Err.Error())
		}
		cr.Tests = append(cr.Tests, tr)
	case runner.TestSkipped:
		cr := r.caseFor(m.Ref(), "")
		cr.Tests = append(cr.Tests, TestReport{
			DisplayName: m.DisplayName,
			Role:        m.Role,
			Status:      types.TestStatusSkip,
			Reason:      m.Reason,
		})
	case runner.TestCaseCleanupFailure:
		cr := r.caseFor(m.Ref(), m.DisplayName)
		tr := TestReport{
			DisplayName: cleanupName,
			Role:        clause.RoleSummary,
			Status:      types.TestStatusFail,
		}
		if m.Err != nil {
			tr.Error = stripansi.Strip(m.Err.Error())
		}
		cr.Tests = append(cr.Tests, tr)
	case runner.TestCaseFinished:
		cr := r.caseFor(m.Ref(), m.DisplayName)
		cr.Summary = m.Summary
		cr.Finished = true
	}
	return nil
}

// caseFor returns the report of a case, registering it on first sight.
func (r *Recorder) caseFor(ref runner.CaseRef, displayName string) *CaseReport {
	if cr, ok := r.cases[ref]; ok {
		if cr.DisplayName == "" {
			cr.DisplayName = displayName
		}
		return cr
	}
	classes, ok := r.classes[ref.Collection]
	if !ok {
		classes = make(map[string][]string)
		r.classes[ref.Collection] = classes
		r.collections = append(r.collections, ref.Collection)
	}
	classes[ref.Class] = append(classes[ref.Class], ref.Case)
	cr := &CaseReport{ID: ref.Case, DisplayName: displayName}
	r.cases[ref] = cr
	return cr
}

// Collections returns the names of the collections seen, in first-seen order.
func (r *Recorder) Collections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.collections...)
}

// Report returns a snapshot of the report of a collection, or nil when no
// message for it was received.
func (r *Recorder) Report(collection string) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	classes, ok := r.classes[collection]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &Report{Collection: collection}
	for _, name := range names {
		class := &ClassReport{Name: name}
		for _, id := range classes[name] {
			ref := runner.CaseRef{Collection: collection, Class: name, Case: id}
			class.Cases = append(class.Cases, r.cases[ref].clone())
		}
		report.Classes = append(report.Classes, class)
	}
	return report
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections = nil
	r.classes = make(map[string]map[string][]string)
	r.cases = make(map[runner.CaseRef]*CaseReport)
}
