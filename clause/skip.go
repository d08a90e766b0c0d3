package clause

import "errors"

// ErrSkipped matches any error returned by Skip.
var ErrSkipped = errors.New("clause skipped")

// SkipError is returned by a clause body that decided not to run.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Is lets errors.Is(err, ErrSkipped) match.
func (e *SkipError) Is(target error) bool {
	return target == ErrSkipped
}

// Skip returns the error a clause body returns to report itself as skipped.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// SkipReason extracts the reason from a skip error anywhere in err's chain.
func SkipReason(err error) (string, bool) {
	var skipErr *SkipError
	if errors.As(err, &skipErr) {
		return skipErr.Reason, true
	}
	return "", false
}
