package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ethereum-optimism/infra/op-scenario/definition"
)

var (
	ErrPanic         = errors.New("clause panicked")
	ErrClauseTimeout = errors.New("clause exceeded timeout")
)

// Invocation is the outcome of invoking a single clause body.
type Invocation struct {
	Elapsed time.Duration
	Output  string
	Err     error
}

// Invoker runs one clause body and reports its outcome as a value.
// Implementations must not panic and must not return before the body does.
type Invoker interface {
	Invoke(ctx context.Context, test definition.Test) Invocation
}

// DefaultInvoker times the body, captures what it writes and turns panics into
// failures. With a Timeout the body gets a context with that deadline and is
// failed if it returns after the deadline passed.
type DefaultInvoker struct {
	Timeout        time.Duration
	MaxOutputBytes int
}

func (d DefaultInvoker) Invoke(ctx context.Context, test definition.Test) Invocation {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	out := newTailBuffer(d.MaxOutputBytes)
	start := time.Now()
	err := d.call(ctx, test, out)
	elapsed := time.Since(start)

	if err == nil && d.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %s after %s", ErrClauseTimeout, test.DisplayName, d.Timeout)
	}

	output := out.String()
	if out.Truncated() {
		output = "...(truncated)\n" + output
	}
	return Invocation{Elapsed: elapsed, Output: output, Err: err}
}

func (d DefaultInvoker) call(ctx context.Context, test definition.Test, out *tailBuffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	if test.Clause.Member.Body == nil {
		return definition.ErrNilBody
	}
	return test.Invoke(ctx, out)
}
