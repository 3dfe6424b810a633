// Package rlimit raises the process's open file descriptor limit at startup.
package rlimit

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by System on platforms without rlimits.
var ErrUnsupported = errors.New("resource limits are not supported on this platform")

// Limit is a soft/hard pair for RLIMIT_NOFILE.
type Limit struct {
	Soft uint64
	Hard uint64
}

// Syscaller reads and writes the process's RLIMIT_NOFILE.
type Syscaller interface {
	Get() (Limit, error)
	Set(Limit) error
}

// Limiter sets the soft descriptor limit to Target.
type Limiter struct {
	// Target is the desired soft limit. Zero leaves the limit untouched.
	Target uint64

	Sys Syscaller
}

// New returns a Limiter for target using the operating system.
func New(target uint64) *Limiter {
	return &Limiter{Target: target, Sys: System()}
}

// Configure sets the soft limit to Target. The hard limit is never raised;
// a Target above it fails and leaves the current limits in place.
func (l *Limiter) Configure() error {
	if l.Target == 0 {
		return nil
	}

	cur, err := l.Sys.Get()
	if err != nil {
		return &Error{Code: ErrCodeQueryFailed, Requested: l.Target, Err: err}
	}

	if l.Target > cur.Hard {
		return &Error{Code: ErrCodeExceedsCeiling, Requested: l.Target, Ceiling: cur.Hard}
	}

	if err := l.Sys.Set(Limit{Soft: l.Target, Hard: cur.Hard}); err != nil {
		return &Error{Code: ErrCodeSetFailed, Requested: l.Target, Ceiling: cur.Hard, Err: err}
	}
	return nil
}

// ErrorCode categorizes limit failures.
type ErrorCode string

const (
	// ErrCodeQueryFailed indicates getrlimit failed.
	ErrCodeQueryFailed ErrorCode = "LIMIT_QUERY_FAILED"

	// ErrCodeSetFailed indicates setrlimit failed.
	ErrCodeSetFailed ErrorCode = "LIMIT_SET_FAILED"

	// ErrCodeExceedsCeiling indicates the target is above the hard limit.
	ErrCodeExceedsCeiling ErrorCode = "LIMIT_EXCEEDS_CEILING"
)

// Error is a fatal limit configuration failure.
type Error struct {
	Code      ErrorCode
	Requested uint64
	Ceiling   uint64
	Err       error // OS error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeQueryFailed:
		return fmt.Sprintf("couldn't call getrlimit: %v", e.Err)
	case ErrCodeExceedsCeiling:
		return fmt.Sprintf("unable to set NOFILES limit to %d, exceeds max of %d", e.Requested, e.Ceiling)
	case ErrCodeSetFailed:
		return fmt.Sprintf("failed setting NOFILES limit to %d: %v", e.Requested, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsExceedsCeiling reports whether err is a LIMIT_EXCEEDS_CEILING failure.
func IsExceedsCeiling(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == ErrCodeExceedsCeiling
	}
	return false
}
