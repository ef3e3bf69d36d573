package errors

import (
	"context"
	stderrors "errors"
	"strings"
)

// MapNetworkError translates a transport failure into ConnectionFailed, keeping
// a short hint about the failure class in the message.
func MapNetworkError(op string, err error) *CameraError {
	if err == nil {
		return nil
	}
	var ce *CameraError
	if stderrors.As(err, &ce) {
		return ce
	}
	errMsg := err.Error()

	hint := "network error"
	switch {
	case stderrors.Is(err, context.DeadlineExceeded) || strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		hint = "request timeout"
	case stderrors.Is(err, context.Canceled) || strings.Contains(errMsg, "context canceled"):
		hint = "request canceled"
	case strings.Contains(errMsg, "connection refused"):
		hint = "connection refused"
	case strings.Contains(errMsg, "EOF") || strings.Contains(errMsg, "connection reset"):
		hint = "connection reset"
	case strings.Contains(errMsg, "no such host") || strings.Contains(errMsg, "name resolution"):
		hint = "dns resolution error"
	case strings.Contains(errMsg, "certificate") || strings.Contains(errMsg, "tls"):
		hint = "tls error"
	}
	return &CameraError{Kind: KindConnectionFailed, Op: op, Message: hint, Err: err}
}
