// Package errors provides structured error types for the meshrpc client.
// It defines the error taxonomy of the connection-pooling layer: errors that
// reach a request's failure sink, errors returned synchronously by Submit,
// and errors that are absorbed inside the pool and only logged.
//
// This package provides:
//   - Sentinel errors for common error conditions
//   - Error codes for categorizing failures toward upper layers
//   - Error wrapping with context preservation
package errors

import (
	"errors"
	"fmt"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Error codes for categorizing errors reported to the RPC layer above the
// pool. Custom codes live in the -32000 to -32099 range.
const (
	CodeInternal = -32603 // Internal error

	CodeTimeout     = -32005 // Request aged out before a write slot was found
	CodeUnavailable = -32007 // Endpoint cannot serve requests
	CodeConnection  = -32009 // Transport-level connection error
	CodeState       = -32010 // Invalid state (e.g. submit after close)
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrPoolClosed indicates a request was submitted to a closed pool.
	// It is returned synchronously by Submit and is never delivered
	// through a request's failure sink.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrPoolFull indicates an attempted connection open would exceed the
	// pool's connection limit. It is absorbed inside the pool and logged;
	// no request fails because of it.
	ErrPoolFull = errors.New("pool: connection limit reached")

	// ErrTimeout indicates a pending request aged past its write timeout
	// before a connection became available to carry it.
	ErrTimeout = errors.New("pool: request timed out")

	// ErrWriteFailed indicates a transport-level write error. It is
	// delivered to the failing request's sink and also recorded against
	// the endpoint's backoff strategy.
	ErrWriteFailed = errors.New("transport: write failed")

	// ErrConnectFailed indicates a transport-level connect error. It is
	// absorbed inside the pool; the triggering request stays queued.
	ErrConnectFailed = errors.New("transport: connect failed")

	// ErrNotConnected indicates an operation on a disconnected connection.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrClosed indicates a resource is closed.
	ErrClosed = errors.New("closed")

	// ErrConfiguration indicates a configuration error.
	ErrConfiguration = errors.New("configuration error")
)

// Error is a structured error with a code and safe message.
type Error struct {
	// Code is the error code for categorization
	Code int `json:"code"`
	// Message is a safe, user-facing error message
	Message string `json:"message"`
	// Err is the underlying error (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new structured error with the given code and message.
func New(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a code and safe message.
// The original error is preserved for debugging but not exposed to clients.
func Wrap(code int, message string, err error) *Error {
	if err != nil {
		log.WithField("code", code).WithError(err).Debug("wrapping error")
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// FromSentinel creates a structured error from a sentinel error.
// It assigns an error code based on the error type.
func FromSentinel(err error) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    codeFromError(err),
		Message: err.Error(),
		Err:     err,
	}
}

// codeFromError maps sentinel errors to error codes.
func codeFromError(err error) int {
	switch {
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrPoolClosed):
		return CodeState
	case errors.Is(err, ErrWriteFailed), errors.Is(err, ErrConnectFailed), errors.Is(err, ErrNotConnected):
		return CodeConnection
	case errors.Is(err, ErrPoolFull):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// IsTimeout returns true if the error indicates a request timed out.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsPoolClosed returns true if the error indicates the pool is closed.
func IsPoolClosed(err error) bool {
	return errors.Is(err, ErrPoolClosed)
}

// IsWriteFailure returns true if the error indicates a transport write failure.
func IsWriteFailure(err error) bool {
	return errors.Is(err, ErrWriteFailed)
}

// IsConnectFailure returns true if the error indicates a transport connect failure.
func IsConnectFailure(err error) bool {
	return errors.Is(err, ErrConnectFailed)
}

// IsClosed returns true if the error indicates a resource is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// Join combines multiple errors into a single error.
// Returns nil if all errors are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target,
// and if so, sets target to that error value and returns true.
func As(err error, target any) bool {
	return errors.As(err, target)
}
