package gpu

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures raised by GPU-facing code.
type ErrorKind int

const (
	// KindConfiguration marks an invalid enum or state value supplied to a GPU-facing setter.
	// Raised at the point of translation and never silently defaulted.
	KindConfiguration ErrorKind = iota + 1

	// KindAllocation marks a failed buffer, texture, program or target creation.
	// Partially allocated resources of the same request are released before it propagates.
	KindAllocation

	// KindShaderCompile marks a shader compile or link failure not caused by context loss.
	KindShaderCompile

	// KindContextLost marks an operation that could not run because the device context is gone.
	KindContextLost
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindAllocation:
		return "allocation failure"
	case KindShaderCompile:
		return "shader compile failure"
	case KindContextLost:
		return "context lost"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ErrContextLost is the cause carried by KindContextLost errors.
var ErrContextLost = errors.New("gpu context lost")

// Error is the structured error returned by GPU-facing operations.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Op names the operation that failed (e.g. "compile program", "create target").
	Op string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigError builds a KindConfiguration error with a formatted cause.
//
// Parameters:
//   - op: the translating operation
//   - format: fmt format string describing the invalid value
//   - args: format arguments
//
// Returns:
//   - error: the configuration error
func ConfigError(op string, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// AllocError wraps an allocation failure.
//
// Parameters:
//   - op: the allocating operation
//   - err: the underlying cause
//
// Returns:
//   - error: the allocation error
func AllocError(op string, err error) error {
	return &Error{Kind: KindAllocation, Op: op, Err: err}
}

// IsKind reports whether err is, or wraps, a *Error of the given kind.
//
// Parameters:
//   - err: the error to inspect
//   - kind: the kind to match
//
// Returns:
//   - bool: true if a *Error of that kind is in the chain
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
