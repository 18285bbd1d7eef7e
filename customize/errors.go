package customize

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownOption is returned for option names outside the recognized set.
	ErrUnknownOption = errors.New("unknown option")
	// ErrInvalidValue is returned for values of the wrong type or out of range.
	ErrInvalidValue = errors.New("invalid option value")
	// ErrUnknownPreset is returned when a preset name is not registered.
	ErrUnknownPreset = errors.New("unknown preset")
)

// ConfigurationError describes a rejected option. It matches ErrUnknownOption,
// ErrInvalidValue or ErrUnknownPreset with errors.Is.
type ConfigurationError struct {
	Option string
	Value  any
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Option, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Option, e.Err, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// HookFault records a hook that failed or panicked. Faults are not fatal: the
// pipeline treats the hook as a no-op and the fault is returned to the caller.
type HookFault struct {
	Hook     string
	Phase    HookType
	Err      error
	Panicked bool
}

func (f HookFault) Error() string {
	if f.Panicked {
		return fmt.Sprintf("%s hook %q panicked: %v", f.Phase, f.Hook, f.Err)
	}
	return fmt.Sprintf("%s hook %q failed: %v", f.Phase, f.Hook, f.Err)
}

func (f HookFault) Unwrap() error {
	return f.Err
}

// AbortError is the error an invocation fails with when a hook aborts it.
// It matches context.Canceled with errors.Is.
type AbortError struct {
	Hook   string
	Phase  HookType
	Reason string
}

func (e *AbortError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invocation aborted by %s hook %q", e.Phase, e.Hook)
	}
	return fmt.Sprintf("invocation aborted by %s hook %q: %s", e.Phase, e.Hook, e.Reason)
}

func (e *AbortError) Unwrap() error {
	return context.Canceled
}
