package core

import (
	"errors"
	"fmt"
)

// Error pairs a result code with the operation that produced it and, when
// available, the underlying Go error.
type Error struct {
	Op   string
	Code ResultCode
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a result code for operation op.
func NewError(op string, code ResultCode, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}

// AsCode returns the result code carried by err, OK for a nil error, or def when
// the chain carries no code.
func AsCode(err error, def ResultCode) ResultCode {
	if err == nil {
		return OK
	}
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return def
}

// IsCode reports whether err carries the given result code.
func IsCode(err error, code ResultCode) bool {
	var coreErr *Error
	return errors.As(err, &coreErr) && coreErr.Code == code
}
