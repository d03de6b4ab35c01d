package provider

import (
	"errors"
	"fmt"

	"presswork/internal/cms"
)

// Error is the classified failure every provider operation returns. It pins
// the taxonomy kind and the transient/fatal decision at the point where the
// underlying cause was observed.
//
// Transient errors are retry candidates; fatal errors abort the phase and may
// trigger failover. The wrapped cause is preserved for logs but callers
// branch only on Kind and Transient.
type Error struct {
	// Kind is the taxonomy category of the failure.
	Kind cms.ErrorKind

	// Op names the failed operation ("login", "set_title", "publish").
	Op string

	// Provider names the implementation that produced the error.
	Provider string

	// Transient marks the error as retryable with backoff.
	Transient bool

	// Message describes the failure without any credential material.
	Message string

	// Err is the underlying cause, when one exists.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Provider, e.Op, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient builds a retryable classified error.
func Transient(providerName, op string, kind cms.ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Provider: providerName, Transient: true, Message: message, Err: cause}
}

// Fatal builds a non-retryable classified error.
func Fatal(providerName, op string, kind cms.ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Provider: providerName, Transient: false, Message: message, Err: cause}
}

// AsError extracts the classified error from err's chain, or nil.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

// IsTransient reports whether err carries a retryable classification.
// Unclassified errors are treated as fatal: nothing below the provider layer
// is allowed to decide retry policy implicitly.
func IsTransient(err error) bool {
	if pe := AsError(err); pe != nil {
		return pe.Transient
	}
	return false
}

// KindOf returns the taxonomy kind of err, or "" for unclassified errors.
func KindOf(err error) cms.ErrorKind {
	if pe := AsError(err); pe != nil {
		return pe.Kind
	}
	return ""
}
