// Package xerr defines the closed error taxonomy shared by every core
// component. Rule failures and gateway failures are values of this
// taxonomy, never panics or exceptions-as-control-flow.
package xerr

import "fmt"

// Kind is one of the closed set of failure categories the core can produce.
type Kind string

const (
	InvalidInput        Kind = "InvalidInput"
	StaleData           Kind = "StaleData"
	NotConnected        Kind = "NotConnected"
	DailyLimitReached   Kind = "DailyLimitReached"
	CollisionUnresolved Kind = "CollisionUnresolved"
	InsufficientMargin  Kind = "InsufficientMargin"
	GatewayRejected     Kind = "GatewayRejected"
	Timeout             Kind = "Timeout"
	Internal            Kind = "Internal"
)

// Error is a typed, comparable failure value. Code is only meaningful when
// Kind is GatewayRejected, carrying the broker's opaque retcode.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s(%d): %s", e.Kind, e.Code, e.Message)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Rejected builds a GatewayRejected error carrying the broker's retcode.
func Rejected(code int, message string) *Error {
	return &Error{Kind: GatewayRejected, Code: code, Message: message}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to Internal for anything else — the only place a normal-flow failure is
// allowed to collapse to Internal.
func KindOf(err error) Kind {
	var e *Error
	if AsError(err, &e) {
		return e.Kind
	}
	return Internal
}

// AsError is a small helper mirroring errors.As without forcing callers to
// import errors just for this one taxonomy.
func AsError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
