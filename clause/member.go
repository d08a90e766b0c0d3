// Package clause declares composite test clauses on a class and classifies
// a class's members into clauses.
//
// A class registers its members explicitly. Members built with Precondition,
// Input, ExpectedResult or Summary carry a Marker; members built with Plain
// carry none and are ignored by Classify.
package clause

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Role identifies the part a clause plays in a composite test case.
type Role int

const (
	RoleNone Role = iota
	RolePrecondition
	RoleStepInput
	RoleStepExpectedResult
	RoleSummary
)

// String implements the Stringer interface for Role
func (r Role) String() string {
	switch r {
	case RolePrecondition:
		return "precondition"
	case RoleStepInput:
		return "input"
	case RoleStepExpectedResult:
		return "expected-result"
	case RoleSummary:
		return "summary"
	default:
		return "none"
	}
}

// Valid reports whether r is a recognised clause role.
func (r Role) Valid() bool {
	return r >= RolePrecondition && r <= RoleSummary
}

// label is the bracketed role name used in display names.
func (r Role) label() string {
	switch r {
	case RolePrecondition:
		return "Precondition"
	case RoleStepInput:
		return "Input"
	case RoleStepExpectedResult:
		return "Expected Result"
	case RoleSummary:
		return "Summary"
	default:
		return ""
	}
}

// ErrInstanceType is returned by a bound Method invoked on an instance of the wrong type.
var ErrInstanceType = errors.New("clause instance has unexpected type")

// Method is a clause body. It runs against the instance it is bound to and
// may write diagnostic output to out.
type Method func(ctx context.Context, instance any, out io.Writer) error

// Bind adapts a typed body to a Method.
// T is usually the class's pointer type, or an interface the class satisfies
// when the body is contributed by a companion class through inheritance.
func Bind[T any](fn func(ctx context.Context, instance T, out io.Writer) error) Method {
	return func(ctx context.Context, instance any, out io.Writer) error {
		typed, ok := instance.(T)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrInstanceType, instance)
		}
		return fn(ctx, typed, out)
	}
}

// Marker is the clause metadata attached to a member.
type Marker struct {
	Role        Role
	Order       int
	Description string
}

// Member is one method of a class.
type Member struct {
	Name   string
	Marker *Marker // nil for untagged members
	Body   Method
}

// Precondition declares a precondition clause. Orders are 1-based and unique
// among the preconditions of a definition.
func Precondition(order int, description, name string, body Method) Member {
	return tagged(RolePrecondition, order, description, name, body)
}

// Input declares the input clause of the step with the given order.
func Input(order int, description, name string, body Method) Member {
	return tagged(RoleStepInput, order, description, name, body)
}

// ExpectedResult declares the expected-result clause of the step with the given order.
func ExpectedResult(order int, description, name string, body Method) Member {
	return tagged(RoleStepExpectedResult, order, description, name, body)
}

// Summary declares the body of a composite test case. It runs after every
// precondition and step of the definition.
func Summary(description, name string, body Method) Member {
	return tagged(RoleSummary, 0, description, name, body)
}

// Plain declares an untagged member.
func Plain(name string, body Method) Member {
	return Member{Name: name, Body: body}
}

func tagged(role Role, order int, description, name string, body Method) Member {
	return Member{
		Name: name,
		Marker: &Marker{
			Role:        role,
			Order:       order,
			Description: description,
		},
		Body: body,
	}
}
