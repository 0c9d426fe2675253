// Package errors defines the typed error taxonomy shared by every
// orchestration component. No component returns a bare fmt.Errorf for a
// user-visible failure; it returns a *Error carrying one of the Codes
// below so callers can branch on failure kind with errors.As.
package errors

import "fmt"

// Code identifies a well-known orchestration failure category.
type Code string

const (
	CodeConfiguration     Code = "CONFIGURATION_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
	CodeConstraint        Code = "CONSTRAINT_VIOLATION"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeEmptySelection    Code = "EMPTY_SELECTION"
	CodeResourceUnavail   Code = "RESOURCE_UNAVAILABLE"
	CodeStorage           Code = "STORAGE_ERROR"
	CodeVerification      Code = "VERIFICATION_ERROR"
	CodeTimeout           Code = "TIMEOUT"
	CodeStageExecutable   Code = "STAGE_EXECUTABLE_ERROR"
	CodeCancelled         Code = "CANCELLED"
	CodeQueueFull         Code = "QUEUE_FULL"
	CodeShuttingDown      Code = "SHUTTING_DOWN"
	CodeNotFound          Code = "NOT_FOUND"
)

// Error is a typed, context-enriched error used throughout the
// orchestrator. It is free of any infrastructure dependency so the
// domain layer never imports logging, storage, or transport packages.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares by code and message so errors.Is works across call sites
// that reconstruct an equivalent error rather than passing the pointer.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// WithContext returns a copy of e with additional contextual fields
// merged in, leaving the receiver untouched.
func (e *Error) WithContext(ctx map[string]interface{}) *Error {
	if e == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &Error{Code: e.Code, Message: e.Message, Cause: e.Cause, Context: merged}
}

// New constructs an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an *Error with the given code, message, and cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Convenience constructors for the most frequently raised kinds.

func NewConfiguration(message string, cause error) *Error {
	return Wrap(CodeConfiguration, message, cause)
}

func NewDependency(message string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeDependency, Message: message, Context: ctx}
}

func NewCycle(path []string) *Error {
	return &Error{Code: CodeDependency, Message: "circular dependency detected", Context: map[string]interface{}{"path": path}}
}

func NewConstraintViolation(message string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeConstraint, Message: message, Context: ctx}
}

func NewValidationFailed(message string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeValidationFailed, Message: message, Context: ctx}
}

func NewEmptySelection() *Error {
	return New(CodeEmptySelection, "selection matched no stages")
}

func NewStorage(message string, cause error) *Error {
	return Wrap(CodeStorage, message, cause)
}

func NewVerification(message string) *Error {
	return New(CodeVerification, message)
}

func NewTimeout(stageID string) *Error {
	return &Error{Code: CodeTimeout, Message: "deadline exceeded", Context: map[string]interface{}{"stage_id": stageID}}
}

func NewStageExecutable(stageID string, cause error) *Error {
	return &Error{Code: CodeStageExecutable, Message: "executable failed", Cause: cause, Context: map[string]interface{}{"stage_id": stageID}}
}

func NewCancelled() *Error {
	return New(CodeCancelled, "operation cancelled")
}

func NewQueueFull() *Error {
	return New(CodeQueueFull, "thread pool queue is full")
}

func NewShuttingDown() *Error {
	return New(CodeShuttingDown, "thread pool is shutting down")
}

func NewNotFound(message string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: message, Context: ctx}
}

// Is reports whether err carries the given code, unwrapping as needed.
func Is(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Code == code {
				return true
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return false
}
