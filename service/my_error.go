package service

import (
	"errors"
	"fmt"
)

const (
	// ErrInternalServerError means that an internal server error has occurred,
	// including a broken registry index invariant.
	ErrInternalServerError = "internal_server_error"
	// ErrEntityNotFound means that the instance id is unknown or was already removed.
	ErrEntityNotFound = "entity_not_found"
	// ErrBadParameter means that a request could not be parsed or failed validation.
	ErrBadParameter = "bad_parameter"
	// ErrAllocationExhausted means that the virtual address pool has no free slot.
	ErrAllocationExhausted = "allocation_exhausted"
	// ErrServiceUnavailable means that a service name has no live instance.
	ErrServiceUnavailable = "service_unavailable"
	// ErrBackendUnreachable means that every backend tried for a request refused or failed.
	ErrBackendUnreachable = "backend_unreachable"
	// ErrRateLimited means that the caller exceeded the request rate.
	ErrRateLimited = "rate_limited"
)

// MyError represents an error within the context of netsel services.
type MyError struct {
	// Code is a machine-readable code.
	Code string `json:"code,omitempty"`
	// Message is a human-readable message.
	Message string `json:"message"`
	// Inner is a wrapped error that is never shown to API consumers.
	Inner error `json:"-"`
}

// NewMyError creates a new MyError.
func NewMyError(code string, message string, inner error) *MyError {
	return &MyError{
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

// newCoded keeps an inner MyError as is, so the innermost code wins.
func newCoded(code string, message string, inner error) *MyError {
	if myInner := ToMyError(inner); myInner != nil {
		return myInner
	}
	return NewMyError(code, message, inner)
}

func NewInternalServerError(message string, inner error) *MyError {
	return newCoded(ErrInternalServerError, message, inner)
}

func NewEntityNotFoundError(message string, inner error) *MyError {
	return newCoded(ErrEntityNotFound, message, inner)
}

func NewBadParameterError(message string, inner error) *MyError {
	return newCoded(ErrBadParameter, message, inner)
}

func NewAllocationExhaustedError(message string, inner error) *MyError {
	return newCoded(ErrAllocationExhausted, message, inner)
}

func NewServiceUnavailableError(message string, inner error) *MyError {
	return newCoded(ErrServiceUnavailable, message, inner)
}

func NewBackendUnreachableError(message string, inner error) *MyError {
	return newCoded(ErrBackendUnreachable, message, inner)
}

func NewRateLimitedError(message string, inner error) *MyError {
	return newCoded(ErrRateLimited, message, inner)
}

func (e MyError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s %s: %v", e.Code, e.Message, e.Inner)
	}

	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

// Unwrap the error returning the error's reason.
func (e MyError) Unwrap() error {
	return e.Inner
}

// ToMyError returns a pointer to a netsel error, or nil if it is not a netsel error.
func ToMyError(err error) *MyError {
	var e *MyError
	if errors.As(err, &e) {
		return e
	}

	return nil
}

// ToMyErrorCode returns the code of the error, if available.
func ToMyErrorCode(err error) string {
	myerror := ToMyError(err)
	if myerror != nil {
		return myerror.Code
	}
	return ""
}

func IsMyError(err error, code string) bool {
	myerror := ToMyError(err)
	if myerror != nil {
		return myerror.Code == code
	}
	return false
}

func IsInternalServerError(err error) bool {
	return IsMyError(err, ErrInternalServerError)
}

func IsEntityNotFoundError(err error) bool {
	return IsMyError(err, ErrEntityNotFound)
}

func IsBadParameterError(err error) bool {
	return IsMyError(err, ErrBadParameter)
}

func IsAllocationExhaustedError(err error) bool {
	return IsMyError(err, ErrAllocationExhausted)
}

func IsServiceUnavailableError(err error) bool {
	return IsMyError(err, ErrServiceUnavailable)
}

func IsBackendUnreachableError(err error) bool {
	return IsMyError(err, ErrBackendUnreachable)
}
