package kadmin

import "errors"

// ErrorKind classifies the failures lifecycle operations can produce.
type ErrorKind int8

const (
	// KindInvocationFailed means a subprocess could not be run or exited
	// nonzero where a zero exit was required.
	KindInvocationFailed ErrorKind = iota + 1
	// KindNotFound means a principal was absent where it was required to exist.
	KindNotFound
	// KindConfigInvalid means an input was malformed, e.g. keytab content that
	// does not decode as base64.
	KindConfigInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvocationFailed:
		return "invocation_failed"
	case KindNotFound:
		return "not_found"
	case KindConfigInvalid:
		return "config_invalid"
	}
	return "unknown"
}

// Error carries the failure of one lifecycle operation along with the
// operation and principal it concerns. Messages are redacted before they are
// stored, so an Error is safe to log as is.
type Error struct {
	Kind      ErrorKind
	Op        string
	Principal string
	Err       error

	msg string
}

// NewError builds an Error. msg must already be redacted by the caller when
// it could contain credential material.
func NewError(kind ErrorKind, op, principal, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Principal: principal, Err: err, msg: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.msg + ": " + e.Err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err or any error it wraps is an Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var kerr *Error
	return errors.As(err, &kerr) && kerr.Kind == kind
}
