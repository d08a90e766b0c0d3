package definition

import (
	"fmt"
	"reflect"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

type source struct {
	class    *types.Class
	instance any
}

type boundClause struct {
	clause.Clause
	class    string
	instance any
}

// Build assembles the definition of class for one case run.
//
// Clauses come from each of the class's dependencies in declaration order and
// then from the class itself. Inherited clauses run against instance.
// Aggregated clauses run against the companion registered under the
// dependency's class name in companions, or else the first constructor
// argument whose dynamic type is exactly the dependency's type.
//
// Orders are placed as declared and never resequenced: a gap, a duplicate or
// an expected result without a matching input is a *ConfigurationError.
func Build(class *types.Class, instance any, args []any, companions map[string]any) (*Definition, error) {
	sources, err := resolveSources(class, instance, args, companions)
	if err != nil {
		return nil, err
	}

	var preconditions, inputs, expected []boundClause
	for _, src := range sources {
		for _, c := range clause.Components(clause.Classify(src.class.Members)) {
			if c.Member.Body == nil {
				return nil, defect(src.class.Name, c.Name(), ErrNilBody, "%s clause", c.Role)
			}
			bc := boundClause{Clause: c, class: src.class.Name, instance: src.instance}
			switch c.Role {
			case clause.RolePrecondition:
				preconditions = append(preconditions, bc)
			case clause.RoleStepInput:
				inputs = append(inputs, bc)
			case clause.RoleStepExpectedResult:
				expected = append(expected, bc)
			}
		}
	}

	pre, err := place(preconditions)
	if err != nil {
		return nil, err
	}
	in, err := place(inputs)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, len(in))
	for i, t := range in {
		steps[i].Input = t
	}
	for _, bc := range expected {
		if bc.Order < 1 || bc.Order > len(steps) {
			return nil, defect(bc.class, bc.Name(), ErrMissingInput, "order %d", bc.Order)
		}
		step := &steps[bc.Order-1]
		if step.ExpectedResult != nil {
			return nil, defect(bc.class, bc.Name(), ErrDuplicateOrder,
				"%s order %d already taken by %s", bc.Role, bc.Order, step.ExpectedResult.Clause.Name())
		}
		t := bc.test()
		step.ExpectedResult = &t
	}

	d := &Definition{preconditions: pre, steps: steps}
	d.assignDisplayNames()
	return d, nil
}

func resolveSources(class *types.Class, instance any, args []any, companions map[string]any) ([]source, error) {
	sources := make([]source, 0, len(class.Dependencies)+1)
	for _, dep := range class.Dependencies {
		switch dep.Relation {
		case types.Inheritance:
			sources = append(sources, source{class: dep.Class, instance: instance})
		case types.Aggregation:
			companion, ok := findCompanion(dep.Class, args, companions)
			if !ok {
				return nil, defect(class.Name, "", ErrMissingCompanion, "companion %s (%v)", dep.Class.Name, dep.Class.Type)
			}
			sources = append(sources, source{class: dep.Class, instance: companion})
		default:
			return nil, defect(class.Name, "", fmt.Errorf("unknown relation %s", dep.Relation), "dependency %s", dep.Class.Name)
		}
	}
	return append(sources, source{class: class, instance: instance}), nil
}

func findCompanion(companion *types.Class, args []any, companions map[string]any) (any, bool) {
	if v, ok := companions[companion.Name]; ok && v != nil {
		return v, true
	}
	if companion.Type == nil {
		return nil, false
	}
	for _, arg := range args {
		if arg != nil && reflect.TypeOf(arg) == companion.Type {
			return arg, true
		}
	}
	return nil, false
}

// place sizes the slice by the number of clauses of one role and puts each
// clause at order-1.
func place(clauses []boundClause) ([]Test, error) {
	slots := make([]*boundClause, len(clauses))
	for i := range clauses {
		bc := &clauses[i]
		if bc.Order < 1 || bc.Order > len(slots) {
			return nil, defect(bc.class, bc.Name(), ErrOrderOutOfRange,
				"%s order %d not in 1..%d", bc.Role, bc.Order, len(slots))
		}
		if prev := slots[bc.Order-1]; prev != nil {
			return nil, defect(bc.class, bc.Name(), ErrDuplicateOrder,
				"%s order %d already taken by %s", bc.Role, bc.Order, prev.Name())
		}
		slots[bc.Order-1] = bc
	}
	tests := make([]Test, len(slots))
	for i, bc := range slots {
		tests[i] = bc.test()
	}
	return tests, nil
}

func (bc boundClause) test() Test {
	return Test{Clause: bc.Clause, Instance: bc.instance}
}

func (d *Definition) assignDisplayNames() {
	total := d.Len()
	pos := 0
	name := func(t *Test) {
		pos++
		t.DisplayName = fmt.Sprintf("[%d/%d] %s", pos, total, t.Clause.BaseDisplayName())
	}
	for i := range d.preconditions {
		name(&d.preconditions[i])
	}
	for i := range d.steps {
		name(&d.steps[i].Input)
		if d.steps[i].ExpectedResult != nil {
			name(d.steps[i].ExpectedResult)
		}
	}
}
