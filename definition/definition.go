// Package definition assembles the ordered composite test definition of a
// class from its own clauses and those of its companion classes.
package definition

import (
	"context"
	"io"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
)

// Test is a clause bound to the instance it runs against, with its final
// display name.
type Test struct {
	Clause      clause.Clause
	Instance    any
	DisplayName string
}

// Invoke runs the clause body against its bound instance.
func (t Test) Invoke(ctx context.Context, out io.Writer) error {
	return t.Clause.Member.Body(ctx, t.Instance, out)
}

// Step is one step input and its optional expected result.
type Step struct {
	Input          Test
	ExpectedResult *Test
}

func (s Step) clone() Step {
	if s.ExpectedResult != nil {
		er := *s.ExpectedResult
		s.ExpectedResult = &er
	}
	return s
}

// Definition is the ordered set of preconditions and steps of one composite
// test case. It is immutable once built.
type Definition struct {
	preconditions []Test
	steps         []Step
}

// Preconditions returns the preconditions in order.
func (d *Definition) Preconditions() []Test {
	return append([]Test(nil), d.preconditions...)
}

// Steps returns the steps in order.
func (d *Definition) Steps() []Step {
	steps := make([]Step, len(d.steps))
	for i, s := range d.steps {
		steps[i] = s.clone()
	}
	return steps
}

// Tests returns every clause in execution order: preconditions, then each
// step's input followed by its expected result.
func (d *Definition) Tests() []Test {
	tests := make([]Test, 0, d.Len())
	tests = append(tests, d.preconditions...)
	for _, s := range d.steps {
		tests = append(tests, s.Input)
		if s.ExpectedResult != nil {
			tests = append(tests, *s.ExpectedResult)
		}
	}
	return tests
}

// Len returns the number of clauses in the definition.
func (d *Definition) Len() int {
	n := len(d.preconditions)
	for _, s := range d.steps {
		n++
		if s.ExpectedResult != nil {
			n++
		}
	}
	return n
}
