// Package apperr defines the error taxonomy shared by all request paths:
// caller errors, unknown resources, collaborator failures and non-fatal
// storage failures. Handlers map these to HTTP statuses at the boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a missing or malformed required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks an unknown persona key or session id.
	ErrNotFound = errors.New("not found")
)

// Invalidf wraps ErrInvalidInput with detail.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// UpstreamError marks a collaborator that errored, timed out or returned an
// unexpected payload. The wrapped error is for logs only and must not reach
// clients.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("upstream %s failed", e.Service)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError for the named collaborator.
func Upstream(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}

// Upstreamf builds an UpstreamError from a format string.
func Upstreamf(service, format string, args ...any) error {
	return &UpstreamError{Service: service, Err: fmt.Errorf(format, args...)}
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// StorageError marks a persistence failure. Always non-fatal to the in-flight
// request: logged and swallowed by the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for the named operation.
func Storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
