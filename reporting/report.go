package reporting

import (
	"time"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// TestReport is one reported result: a clause, a summary body, a case-level
// failure or a cleanup failure.
type TestReport struct {
	DisplayName string
	Role        clause.Role
	Status      types.TestStatus
	Elapsed     time.Duration
	Output      string
	Error       string
	Reason      string // skip reason
}

// CaseReport collects the results of one composite case.
type CaseReport struct {
	ID          string
	DisplayName string
	Discovered  bool // found by class-level discovery
	Finished    bool
	Summary     types.RunSummary
	Tests       []TestReport
}

// Status is the case status once finished; an unfinished case is an error.
func (c *CaseReport) Status() types.TestStatus {
	if !c.Finished {
		return types.TestStatusError
	}
	return c.Summary.Status()
}

// ClassReport groups the cases of one class.
type ClassReport struct {
	Name  string
	Cases []*CaseReport
}

// Summary aggregates the summaries of the finished cases.
func (c *ClassReport) Summary() types.RunSummary {
	var s types.RunSummary
	for _, cr := range c.Cases {
		s.Aggregate(cr.Summary)
	}
	return s
}

// Status derives the class status; any unfinished case makes it an error.
func (c *ClassReport) Status() types.TestStatus {
	for _, cr := range c.Cases {
		if !cr.Finished {
			return types.TestStatusError
		}
	}
	return c.Summary().Status()
}

// Report is the hierarchical result of one collection run. Classes are sorted
// by name.
type Report struct {
	Collection string
	Classes    []*ClassReport
}

func (r *Report) Summary() types.RunSummary {
	var s types.RunSummary
	for _, c := range r.Classes {
		s.Aggregate(c.Summary())
	}
	return s
}

func (r *Report) Status() types.TestStatus {
	for _, c := range r.Classes {
		if c.Status() == types.TestStatusError {
			return types.TestStatusError
		}
	}
	return r.Summary().Status()
}

func (c *CaseReport) clone() *CaseReport {
	cp := *c
	cp.Tests = append([]TestReport(nil), c.Tests...)
	return &cp
}
