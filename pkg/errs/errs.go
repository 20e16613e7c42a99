// Package errs defines the error taxonomy shared across geosentry's
// components. Only InputInvalid surfaces as a request failure; every other
// kind is absorbed by the component that observed it and expressed as a
// flag or diagnostic marker on the verdict instead.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure, independent of its message.
type Code string

const (
	// InputInvalid means a required field was missing or the envelope was
	// malformed. Recovered at the orchestrator's entry point; no verdict
	// is produced.
	InputInvalid Code = "INPUT_INVALID"

	// ProviderTransient means a single IP-reputation or embedding call
	// failed (network, timeout, HTTP >= 400, malformed response).
	ProviderTransient Code = "PROVIDER_TRANSIENT"

	// VectorStoreUnavailable means a collection create/upsert/search call
	// failed. The verdict is still produced with degraded pattern analysis.
	VectorStoreUnavailable Code = "VECTOR_STORE_UNAVAILABLE"

	// GenerativeModelUnavailable means the full risk-evaluation path
	// failed or returned non-JSON. Callers fall back to the lite path, or to
	// a raw-text result when the reply was not JSON.
	GenerativeModelUnavailable Code = "GENERATIVE_MODEL_UNAVAILABLE"

	// InternalInvariantViolation means a computed score left its declared
	// bounds or an adapter returned a shape it should have rejected itself.
	InternalInvariantViolation Code = "INTERNAL_INVARIANT_VIOLATION"
)

// Error is an application error carrying a Code for programmatic handling
// and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair for diagnostics and returns e.
func (e *Error) WithDetails(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error of the given kind.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error of the given kind around an existing cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// InvalidInput creates an InputInvalid error.
func InvalidInput(message string) *Error {
	return New(InputInvalid, message)
}

// Transient creates a ProviderTransient error wrapping cause.
func Transient(provider string, cause error) *Error {
	return Wrap(cause, ProviderTransient, "provider call failed").WithDetails("provider", provider)
}

// VectorStore creates a VectorStoreUnavailable error wrapping cause.
func VectorStore(op string, cause error) *Error {
	return Wrap(cause, VectorStoreUnavailable, "vector store call failed").WithDetails("op", op)
}

// GenerativeModel creates a GenerativeModelUnavailable error wrapping cause.
func GenerativeModel(cause error) *Error {
	return Wrap(cause, GenerativeModelUnavailable, "generative model call failed")
}

// Invariant creates an InternalInvariantViolation error.
func Invariant(message string) *Error {
	return New(InternalInvariantViolation, message)
}

// Of extracts *Error from err, if any.
func Of(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// CodeOf returns the Code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	if e, ok := Of(err); ok {
		return e.Code
	}
	return ""
}
