// pkg/reenroll_err/errors.go
//
// Error classification for the campaign CLI. Components return typed
// errors; the single point of process termination lives in cmd/.

package reenroll_err

import (
	cerr "github.com/cockroachdb/errors"
)

// expectedError marks an error as an anticipated operator problem (bad
// flag, missing roster file, absent snapshot). These exit non-zero but are
// reported without a stack dump.
type expectedError struct {
	cause error
}

func (e *expectedError) Error() string { return e.cause.Error() }
func (e *expectedError) Unwrap() error { return e.cause }

// NewExpectedError wraps err as an expected operator error. Returns nil for
// a nil err.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &expectedError{cause: err}
}

// NewExpectedErrorf builds an expected operator error from a format string.
func NewExpectedErrorf(format string, args ...interface{}) error {
	return &expectedError{cause: cerr.Newf(format, args...)}
}

// IsExpectedUserError reports whether err (or anything it wraps) was marked
// as an expected operator error.
func IsExpectedUserError(err error) bool {
	if err == nil {
		return false
	}
	var ee *expectedError
	return cerr.As(err, &ee)
}

// ExitCode maps an error to the process exit status: 0 on success, 2 for
// operator errors, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsExpectedUserError(err):
		return 2
	default:
		return 1
	}
}
