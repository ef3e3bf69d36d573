package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies camera failures independently of the backend protocol.
type Kind string

const (
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindMissingCredentials   Kind = "missing_credentials"
	KindConnectionFailed     Kind = "connection_failed"
	KindUnauthorized         Kind = "unauthorized"
	KindFrameUnavailable     Kind = "frame_unavailable"
	KindInvalidResponse      Kind = "invalid_response"
	KindUnsupported          Kind = "unsupported"
)

// Sentinels usable with errors.Is.
var (
	ErrInvalidConfiguration = &CameraError{Kind: KindInvalidConfiguration}
	ErrMissingCredentials   = &CameraError{Kind: KindMissingCredentials}
	ErrConnectionFailed     = &CameraError{Kind: KindConnectionFailed}
	ErrUnauthorized         = &CameraError{Kind: KindUnauthorized}
	ErrFrameUnavailable     = &CameraError{Kind: KindFrameUnavailable}
	ErrInvalidResponse      = &CameraError{Kind: KindInvalidResponse}
	ErrUnsupported          = &CameraError{Kind: KindUnsupported}
)

// CameraError is the only error shape that leaves a provider.
type CameraError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *CameraError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CameraError) Unwrap() error { return e.Err }

// Is matches on Kind so that wrapped instances compare equal to the sentinels.
func (e *CameraError) Is(target error) bool {
	t, ok := target.(*CameraError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a CameraError.
func New(kind Kind, op, message string) *CameraError {
	return &CameraError{Kind: kind, Op: op, Message: message}
}

// Newf builds a CameraError with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *CameraError {
	return &CameraError{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new CameraError.
func Wrap(kind Kind, op string, err error) *CameraError {
	return &CameraError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the taxonomy kind of err, or "" when err is not a CameraError.
func KindOf(err error) Kind {
	var ce *CameraError
	if stderrors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
