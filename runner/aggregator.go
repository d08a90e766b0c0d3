package runner

import (
	"errors"
	"fmt"
	"sync"
)

// Aggregator collects lifecycle errors (construction and disposal failures)
// that do not stop a run. It is safe for concurrent use.
type Aggregator struct {
	mu   sync.Mutex
	errs []error
}

// Add records err. Nil errors are ignored.
func (a *Aggregator) Add(err error) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, err)
}

// Run calls fn, records its error or panic and returns what it recorded.
func (a *Aggregator) Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		a.Add(err)
	}()
	return fn()
}

func (a *Aggregator) HasErrors() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errs) > 0
}

// Errors returns a copy of the recorded errors in the order they were added.
func (a *Aggregator) Errors() []error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]error(nil), a.errs...)
}

// Err joins the recorded errors, or returns nil when there are none.
func (a *Aggregator) Err() error {
	return errors.Join(a.Errors()...)
}
