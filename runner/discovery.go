package runner

import (
	"context"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// NewTestCases returns one case per summary member declared on class, in
// member order. Summaries of companion classes do not root cases.
func NewTestCases(class *types.Class) []*TestCase {
	var cases []*TestCase
	for _, s := range clause.Summaries(clause.Classify(class.Members)) {
		cases = append(cases, &TestCase{Class: class, Summary: s})
	}
	return cases
}

// Discover implements the TestRunner interface
func (r *runner) Discover(ctx context.Context, class *types.Class, bus MessageBus) ([]*TestCase, error) {
	return r.discover(ctx, "", class, nil, bus)
}

// discover returns the cases of class whose IDs are not in known and
// publishes TestCaseDiscovered for each of them.
func (r *runner) discover(ctx context.Context, collection string, class *types.Class, known map[string]bool, bus MessageBus) ([]*TestCase, error) {
	var found []*TestCase
	for _, tc := range NewTestCases(class) {
		if known[tc.ID()] {
			continue
		}
		if err := publish(ctx, bus, TestCaseDiscovered{CaseRef: tc.ref(collection), DisplayName: tc.DisplayName()}); err != nil {
			return found, err
		}
		found = append(found, tc)
	}
	r.log.Debug("Discovered test cases", "class", class.Name, "new", len(found))
	return found, nil
}
