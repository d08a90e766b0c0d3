package types

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrMissingFixture is returned when a constructor argument has no fixture.
var ErrMissingFixture = errors.New("no fixture for constructor argument")

// Fixtures maps a fixture's exact type to the fixture instance.
type Fixtures map[reflect.Type]any

// NewFixtures keys each value by its dynamic type.
func NewFixtures(values ...any) Fixtures {
	f := make(Fixtures, len(values))
	for _, v := range values {
		f.Add(v)
	}
	return f
}

// Add stores v under its dynamic type, replacing any fixture of the same type.
func (f Fixtures) Add(v any) {
	if v == nil {
		return
	}
	f[reflect.TypeOf(v)] = v
}

// Lookup returns the fixture with exactly type t.
func (f Fixtures) Lookup(t reflect.Type) (any, bool) {
	v, ok := f[t]
	return v, ok
}

// Resolve returns one fixture per requested type, in order.
func (f Fixtures) Resolve(argTypes []reflect.Type) ([]any, error) {
	args := make([]any, 0, len(argTypes))
	var missing []string
	for _, t := range argTypes {
		v, ok := f.Lookup(t)
		if !ok {
			missing = append(missing, t.String())
			continue
		}
		args = append(args, v)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingFixture, missing)
	}
	return args, nil
}

// MergeFixtures combines assembly-scope and collection-scope fixtures.
// Collection fixtures override assembly fixtures of the same type.
func MergeFixtures(assembly, collection Fixtures) Fixtures {
	merged := make(Fixtures, len(assembly)+len(collection))
	for k, v := range assembly {
		merged[k] = v
	}
	for k, v := range collection {
		merged[k] = v
	}
	return merged
}
