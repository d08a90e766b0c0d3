package definition

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingCompanion = errors.New("no instance for aggregated companion")
	ErrOrderOutOfRange  = errors.New("clause order out of range")
	ErrDuplicateOrder   = errors.New("duplicate clause order")
	ErrMissingInput     = errors.New("expected result has no step input")
	ErrNilBody          = errors.New("clause has no body")
)

// ConfigurationError is a defect in how a class declares its clauses or
// companions. It fails the composite case it was found in without running it.
type ConfigurationError struct {
	Class  string
	Member string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("class %s: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("class %s: member %s: %v", e.Class, e.Member, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

func defect(class, member string, err error, format string, args ...interface{}) error {
	return &ConfigurationError{
		Class:  class,
		Member: member,
		Err:    errors.Wrapf(err, format, args...),
	}
}
