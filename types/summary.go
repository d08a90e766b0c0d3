package types

import (
	"fmt"
	"time"
)

// RunSummary counts executed, failed and skipped results and their total
// elapsed time. Aggregation is associative and commutative, so clause, step,
// case, class and collection summaries can be merged in any grouping.
type RunSummary struct {
	Total   int
	Failed  int
	Skipped int
	Time    time.Duration
}

// Aggregate adds other into s.
func (s *RunSummary) Aggregate(other RunSummary) {
	s.Total += other.Total
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.Time += other.Time
}

// Add returns the combination of s and other.
func (s RunSummary) Add(other RunSummary) RunSummary {
	s.Aggregate(other)
	return s
}

// Passed returns the number of results that neither failed nor were skipped.
func (s RunSummary) Passed() int {
	return s.Total - s.Failed - s.Skipped
}

// Status derives an overall status: any failure fails, otherwise all-skipped
// (or nothing run) skips, otherwise pass.
func (s RunSummary) Status() TestStatus {
	switch {
	case s.Failed > 0:
		return TestStatusFail
	case s.Total == 0 || s.Skipped == s.Total:
		return TestStatusSkip
	default:
		return TestStatusPass
	}
}

func (s RunSummary) String() string {
	return fmt.Sprintf("total=%d passed=%d failed=%d skipped=%d time=%s",
		s.Total, s.Passed(), s.Failed, s.Skipped, s.Time)
}
