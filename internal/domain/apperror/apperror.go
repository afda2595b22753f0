package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure of the capture pipeline. Every error crossing the
// application boundary carries exactly one Kind; anything else is wrapped as
// KindUnexpectedCapture before it surfaces.
type Kind string

const (
	KindAuthConfig            Kind = "AUTH_CONFIG"
	KindInvalidCredentials    Kind = "INVALID_CREDENTIALS"
	KindLoginIncomplete       Kind = "LOGIN_INCOMPLETE"
	KindLoginFormChanged      Kind = "LOGIN_FORM_CHANGED"
	KindLoginTimeout          Kind = "LOGIN_TIMEOUT"
	KindUnsupportedChallenge  Kind = "UNSUPPORTED_CHALLENGE"
	KindDeviceApprovalTimeout Kind = "DEVICE_APPROVAL_TIMEOUT"
	KindCaptureDriver         Kind = "CAPTURE_DRIVER"
	KindCaptureIO             Kind = "CAPTURE_IO"
	KindUnexpectedCapture     Kind = "UNEXPECTED_CAPTURE"
	KindEmailDelivery         Kind = "EMAIL_DELIVERY"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf returns the Kind of err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsClassified reports whether err carries a Kind.
func IsClassified(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr)
}

// HTTPStatus maps a Kind to the status the HTTP layer should answer with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthConfig, KindInvalidCredentials, KindLoginIncomplete,
		KindLoginFormChanged, KindLoginTimeout, KindUnsupportedChallenge,
		KindDeviceApprovalTimeout:
		return http.StatusUnauthorized
	case KindEmailDelivery:
		return http.StatusServiceUnavailable
	case KindCaptureDriver, KindCaptureIO, KindUnexpectedCapture:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
