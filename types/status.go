// Package types contains shared types used across the scenario testing framework
package types

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// String implements the Stringer interface for TestStatus
func (s TestStatus) String() string {
	return string(s)
}
