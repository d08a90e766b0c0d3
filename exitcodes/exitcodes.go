// Package exitcodes defines the standard exit codes used by op-scenario.
package exitcodes

// Exit code constants used by op-scenario
//
// * Success (0): every composite case passed or was skipped
// * TestFailure (1): at least one result failed
// * RuntimeErr (2): configuration errors, bus rejections, panics and other failures to run
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
