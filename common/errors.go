package common

import (
	"errors"
	"fmt"
)

// ErrPreconditionViolation marks caller errors: mismatched streams, negative frame counts,
// empty names, non-positive entry sizes or calls made in the wrong state. These are never retried.
var ErrPreconditionViolation = errors.New("precondition violation")

// ErrIOFailure marks recoverable I/O problems: the caller may log it and carry on with the next item.
var ErrIOFailure = errors.New("i/o failure")

var ErrInvalidKitName = errors.New("invalid kit name")
var ErrKitDirectory = errors.New("kit directory does not exist")
var ErrNoConfiguration = errors.New("drumkit configuration not found")
var ErrNotDrumkit = errors.New("not a drumkit configuration")
var ErrUnsupportedFormat = errors.New("unsupported sample format")
var ErrSampleTimeOutOfRange = errors.New("sample time out of range")
var ErrNoSample = errors.New("zone has no sample")

type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrPreconditionViolation.Error(), e.Reason)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionViolation
}

func Precondition(op string, format string, args ...interface{}) error {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}

func IOFailure(op string, path string, err error) error {
	if err == nil {
		err = ErrIOFailure
	}
	return &IOError{Op: op, Path: path, Err: err}
}
