// Package apierr defines the closed error taxonomy shared by the
// admission service and the execution engine. Every error that can
// reach an HTTP response or a persisted job.error field is a *Error
// carrying one of the Kind values below; nothing else is allowed to
// leak across that boundary.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "auth"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindRateLimited Kind = "rate_limited"
	KindOverCap     Kind = "over_cap"
	KindCancelled   Kind = "cancelled"
	KindUpstream    Kind = "upstream"
	KindFatal       Kind = "fatal"
)

// Subtype further classifies KindUpstream errors.
type Subtype string

const (
	SubtypePaymentRequired Subtype = "payment_required"
	SubtypeTimeout         Subtype = "timeout"
	SubtypeMalformed       Subtype = "malformed_response"
	SubtypeTransport       Subtype = "transport"
)

// Error is the single error type crossing the public boundary.
type Error struct {
	Kind    Kind
	Subtype Subtype
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps a taxonomy kind to its response status code per the
// documented public HTTP surface.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited, KindOverCap:
		return http.StatusTooManyRequests
	case KindCancelled:
		return http.StatusOK
	case KindUpstream, KindFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Upstream(subtype Subtype, message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Subtype: subtype, Message: message, cause: cause}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func RateLimited(message string) *Error {
	return New(KindRateLimited, message)
}

func OverCap(message string) *Error {
	return New(KindOverCap, message)
}

func Fatal(message string, cause error) *Error {
	return Wrap(KindFatal, message, cause)
}

// As is a thin convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf reports the taxonomy kind of err, defaulting to KindFatal for
// errors that never went through this package.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindFatal
}
