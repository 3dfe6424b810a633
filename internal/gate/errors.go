package gate

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes compatibility failures.
type ErrorCode string

const (
	// ErrCodeTooOld indicates the store's format predates the build.
	ErrCodeTooOld ErrorCode = "DB_TOO_OLD"

	// ErrCodeTooNew indicates the store's format postdates the build.
	ErrCodeTooNew ErrorCode = "DB_TOO_NEW"

	// ErrCodeEndiannessMismatch indicates a foreign byte-order tag.
	ErrCodeEndiannessMismatch ErrorCode = "ENDIANNESS_MISMATCH"
)

// Error is a fatal store compatibility failure. Found and Expected hold
// versions for the version codes and byte-order tags for
// ErrCodeEndiannessMismatch.
type Error struct {
	Code     ErrorCode
	Found    uint64
	Expected uint64

	// Remedy tells the operator what to do next.
	Remedy string
}

// Error implements the error interface. The code is not part of the
// message; callers that report it read Code.
func (e *Error) Error() string {
	var msg string
	switch e.Code {
	case ErrCodeTooOld:
		msg = fmt.Sprintf("database version too old: %d, expected version %d", e.Found, e.Expected)
	case ErrCodeTooNew:
		msg = fmt.Sprintf("database version too new: %d, expected version %d", e.Found, e.Expected)
	case ErrCodeEndiannessMismatch:
		msg = fmt.Sprintf("database was created on a machine with different endianness (tag %d, expected %d)", e.Found, e.Expected)
	default:
		msg = fmt.Sprintf("%s: found %d, expected %d", e.Code, e.Found, e.Expected)
	}
	if e.Remedy != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Remedy)
	}
	return msg
}

// NewTooOldError creates an Error for a store older than the build.
func NewTooOldError(found, expected uint64) *Error {
	return &Error{
		Code:     ErrCodeTooOld,
		Found:    found,
		Expected: expected,
		Remedy:   "export your events with 'eventdb export', delete (or move) the database file, and 'eventdb import' them",
	}
}

// NewTooNewError creates an Error for a store newer than the build.
func NewTooNewError(found, expected uint64) *Error {
	return &Error{
		Code:     ErrCodeTooNew,
		Found:    found,
		Expected: expected,
		Remedy:   "upgrade your version of eventdb",
	}
}

// NewEndiannessError creates an Error for a foreign byte-order tag.
func NewEndiannessError(found, expected uint64) *Error {
	return &Error{
		Code:     ErrCodeEndiannessMismatch,
		Found:    found,
		Expected: expected,
		Remedy:   "this database cannot be used on this machine",
	}
}

// IsTooOld reports whether err is a DB_TOO_OLD failure.
func IsTooOld(err error) bool {
	return hasCode(err, ErrCodeTooOld)
}

// IsTooNew reports whether err is a DB_TOO_NEW failure.
func IsTooNew(err error) bool {
	return hasCode(err, ErrCodeTooNew)
}

// IsEndiannessMismatch reports whether err is an ENDIANNESS_MISMATCH failure.
func IsEndiannessMismatch(err error) bool {
	return hasCode(err, ErrCodeEndiannessMismatch)
}

func hasCode(err error, code ErrorCode) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}
