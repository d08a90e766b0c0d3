package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// InstanceFactory constructs and disposes the instance a composite case runs
// against.
type InstanceFactory interface {
	Create(ctx context.Context, class *types.Class, args []any) (any, error)
	// Dispose releases instance. It is called exactly once per case run,
	// including with a nil instance when construction failed.
	Dispose(ctx context.Context, instance any) error
}

// Disposer is implemented by instances that release resources after a case.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// DefaultInstanceFactory calls Class.New and disposes instances implementing
// Disposer or io.Closer.
type DefaultInstanceFactory struct{}

func (DefaultInstanceFactory) Create(ctx context.Context, class *types.Class, args []any) (instance any, err error) {
	if class.New == nil {
		return nil, fmt.Errorf("class %s has no constructor", class.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, fmt.Errorf("%w: constructing %s: %v", ErrPanic, class.Name, r)
		}
	}()
	instance, err = class.New(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("constructing %s: %w", class.Name, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("constructing %s: constructor returned nil", class.Name)
	}
	return instance, nil
}

func (DefaultInstanceFactory) Dispose(ctx context.Context, instance any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: disposing %T: %v", ErrPanic, instance, r)
		}
	}()
	switch v := instance.(type) {
	case nil:
		return nil
	case Disposer:
		return v.Dispose(ctx)
	case io.Closer:
		return v.Close()
	default:
		return nil
	}
}

// FixtureProvider supplies fixtures shared by the classes of a run.
type FixtureProvider interface {
	AssemblyFixtures() types.Fixtures
	CollectionFixtures(collection string) types.Fixtures
}

// StaticFixtures is a FixtureProvider over fixed fixture sets.
type StaticFixtures struct {
	Assembly    types.Fixtures
	Collections map[string]types.Fixtures
}

func (s StaticFixtures) AssemblyFixtures() types.Fixtures {
	return s.Assembly
}

func (s StaticFixtures) CollectionFixtures(collection string) types.Fixtures {
	return s.Collections[collection]
}
