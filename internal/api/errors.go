package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind categorizes a failed API call.
type ErrorKind int

const (
	// KindAuth indicates an authentication failure (HTTP 401).
	KindAuth ErrorKind = iota
	// KindRequest indicates a non-retryable client error (4xx other than 401),
	// typically an endpoint the device model does not support.
	KindRequest
	// KindServer indicates a transient device-side error (HTTP 5xx).
	KindServer
	// KindTransport indicates a connection-level failure.
	KindTransport
	// KindValidation indicates a decoded response whose shape or emptiness
	// does not match the caller's expectation.
	KindValidation
	// KindDecode indicates a JSON parse failure that repair could not recover.
	KindDecode
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "authentication failed"
	case KindRequest:
		return "request rejected"
	case KindServer:
		return "server error"
	case KindTransport:
		return "transport error"
	case KindValidation:
		return "validation failed"
	case KindDecode:
		return "decode failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// APIError is the error type for all failed appliance API calls.
type APIError struct {
	Kind       ErrorKind
	Component  string // sub-API the command was issued against ("ai" or "hh")
	Command    string
	StatusCode int // HTTP status code, if applicable
	Message    string
	Err        error // underlying error, if any
	Retryable  bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Component, e.Command, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *APIError) Unwrap() error {
	return e.Err
}

// newStatusError classifies a non-2xx HTTP response.
func newStatusError(spec commandSpec, statusCode int, body string) *APIError {
	const bodyLimit = 200
	if len(body) > bodyLimit {
		body = body[:bodyLimit]
	}
	e := &APIError{
		Component:  spec.Component,
		Command:    spec.Command,
		StatusCode: statusCode,
		Message:    body,
	}
	switch {
	case statusCode == http.StatusUnauthorized:
		e.Kind = KindAuth
	case statusCode >= 500:
		e.Kind = KindServer
		e.Retryable = true
	default:
		e.Kind = KindRequest
	}
	return e
}

func newTransportError(spec commandSpec, err error) *APIError {
	return &APIError{
		Kind:      KindTransport,
		Component: spec.Component,
		Command:   spec.Command,
		Err:       err,
		Retryable: true,
	}
}

func newValidationError(spec commandSpec, message string) *APIError {
	return &APIError{
		Kind:      KindValidation,
		Component: spec.Component,
		Command:   spec.Command,
		Message:   message,
		Retryable: true,
	}
}

func newDecodeError(spec commandSpec, err error) *APIError {
	return &APIError{
		Kind:      KindDecode,
		Component: spec.Component,
		Command:   spec.Command,
		Err:       err,
		Retryable: true,
	}
}

// IsAuthError reports whether err is an authentication failure. Hosts
// must treat this distinctly from ordinary I/O failures and trigger
// re-authentication instead of retrying.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

// IsNotFound reports whether err is an HTTP 404, which on optional
// endpoints means "unsupported on this device".
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindRequest && apiErr.StatusCode == http.StatusNotFound
}

// IsRetryable reports whether the command retry loop may retry err.
// Errors that are not APIErrors are retried as a defensive catch-all.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return true
}
