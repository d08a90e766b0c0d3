package types

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
)

// Relation describes how a companion class contributes clauses to a primary class.
type Relation int

const (
	// Inheritance runs the companion's clauses against the primary instance.
	Inheritance Relation = iota
	// Aggregation runs the companion's clauses against a separate companion
	// instance supplied to the primary class's constructor.
	Aggregation
)

// String implements the Stringer interface for Relation
func (r Relation) String() string {
	switch r {
	case Inheritance:
		return "inheritance"
	case Aggregation:
		return "aggregation"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// Dependency links a primary class to a companion class.
type Dependency struct {
	Class    *Class
	Relation Relation
}

// Class is a test class: a constructor, the members it declares and the
// companion classes it draws clauses from.
type Class struct {
	Name string
	// Type is the exact dynamic type of the instances New returns. It is how
	// aggregated companions are matched among constructor arguments.
	Type reflect.Type
	// Args lists the constructor arguments, resolved from fixtures by exact type.
	Args []reflect.Type
	// New constructs the shared instance a case runs against.
	New          func(ctx context.Context, args []any) (any, error)
	Members      []clause.Member
	Dependencies []Dependency
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Validate checks that the class and its dependency graph are well formed.
func (c *Class) Validate() error {
	return c.validate(make(map[*Class]bool))
}

func (c *Class) validate(visiting map[*Class]bool) error {
	if c.Name == "" {
		return errors.New("class name is required")
	}
	if visiting[c] {
		return fmt.Errorf("class %q depends on itself", c.Name)
	}
	visiting[c] = true
	defer delete(visiting, c)

	for i, dep := range c.Dependencies {
		if dep.Class == nil {
			return fmt.Errorf("class %q: dependency %d has no class", c.Name, i)
		}
		if dep.Relation != Inheritance && dep.Relation != Aggregation {
			return fmt.Errorf("class %q: dependency %q has unknown relation %s", c.Name, dep.Class.Name, dep.Relation)
		}
		if dep.Relation == Aggregation && dep.Class.Type == nil {
			return fmt.Errorf("class %q: aggregated dependency %q declares no type", c.Name, dep.Class.Name)
		}
		if err := dep.Class.validate(visiting); err != nil {
			return err
		}
	}
	return nil
}

// Catalog maps class names to classes.
type Catalog map[string]*Class

// Register adds classes to the catalog, rejecting duplicates and invalid classes.
func (c Catalog) Register(classes ...*Class) error {
	for _, class := range classes {
		if class == nil {
			return errors.New("cannot register nil class")
		}
		if err := class.Validate(); err != nil {
			return err
		}
		if _, exists := c[class.Name]; exists {
			return fmt.Errorf("class %q already registered", class.Name)
		}
		c[class.Name] = class
	}
	return nil
}
