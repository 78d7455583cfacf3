// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-slice.

package api

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel errors of the dispatch engine. Structured errors carrying the
// matching ErrorCode satisfy errors.Is against these.
var (
	ErrInvalidSize          = errors.New("invalid size")
	ErrUseAfterRelease      = errors.New("use after release")
	ErrInvalidCallbackShape = errors.New("invalid callback shape")
	ErrBackendFault         = errors.New("backend fault")
	ErrInvalidHandle        = errors.New("invalid handle")
	ErrNotSupported         = errors.New("operation not supported")
	ErrClosed               = errors.New("closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidSize
	ErrCodeUseAfterRelease
	ErrCodeInvalidCallbackShape
	ErrCodeBackendFault
	ErrCodeInvalidHandle
	ErrCodeNotSupported
	ErrCodeClosed
	ErrCodeInternal
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                   "ok",
	ErrCodeInvalidSize:          "invalid_size",
	ErrCodeUseAfterRelease:      "use_after_release",
	ErrCodeInvalidCallbackShape: "invalid_callback_shape",
	ErrCodeBackendFault:         "backend_fault",
	ErrCodeInvalidHandle:        "invalid_handle",
	ErrCodeNotSupported:         "not_supported",
	ErrCodeClosed:               "closed",
	ErrCodeInternal:             "internal",
}

// String returns the snake_case name of the code.
func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("code(%d)", int(c))
}

func (c ErrorCode) sentinel() error {
	switch c {
	case ErrCodeInvalidSize:
		return ErrInvalidSize
	case ErrCodeUseAfterRelease:
		return ErrUseAfterRelease
	case ErrCodeInvalidCallbackShape:
		return ErrInvalidCallbackShape
	case ErrCodeBackendFault:
		return ErrBackendFault
	case ErrCodeInvalidHandle:
		return ErrInvalidHandle
	case ErrCodeNotSupported:
		return ErrNotSupported
	case ErrCodeClosed:
		return ErrClosed
	}
	return nil
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches the sentinel associated with the error code.
func (e *Error) Is(target error) bool {
	if s := e.Code.sentinel(); s != nil && s == target {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return false
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Errorf creates a structured error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// CodeOf extracts the ErrorCode of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var f *BackendFault
	if errors.As(err, &f) {
		return ErrCodeBackendFault
	}
	for c := ErrCodeInvalidSize; c < ErrCodeInternal; c++ {
		if errors.Is(err, c.sentinel()) {
			return c
		}
	}
	return ErrCodeInternal
}

// ItemError records the failure of one work item.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// BackendFault aggregates the faults raised by work items of one batch.
// It is reported only after every launched item has finished or failed.
type BackendFault struct {
	Backend string
	Count   int
	Items   []*ItemError
}

// NewBackendFault builds a fault from item errors; nil when items is empty.
func NewBackendFault(backend string, count int, items []*ItemError) error {
	if len(items) == 0 {
		return nil
	}
	return &BackendFault{Backend: backend, Count: count, Items: items}
}

func (f *BackendFault) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %d of %d items failed", ErrBackendFault, f.Backend, len(f.Items), f.Count)
	if len(f.Items) > 0 {
		b.WriteString(": ")
		b.WriteString(f.Items[0].Error())
		if len(f.Items) > 1 {
			fmt.Fprintf(&b, " (and %d more)", len(f.Items)-1)
		}
	}
	return b.String()
}

// Is reports ErrBackendFault.
func (f *BackendFault) Is(target error) bool { return target == ErrBackendFault }

// Unwrap exposes every item fault to errors.Is / errors.As.
func (f *BackendFault) Unwrap() []error {
	out := make([]error, len(f.Items))
	for i, it := range f.Items {
		out[i] = it
	}
	return out
}

// PanicError carries a value recovered from a panicking work item.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError captures the current goroutine stack. Call it from a deferred recover.
func NewPanicError(v any) *PanicError {
	buf := make([]byte, 8<<10)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: buf[:n]}
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
