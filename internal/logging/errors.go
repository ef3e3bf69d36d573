package logging

import (
	"context"
	"errors"

	apperrors "camgate-go/internal/errors"
)

// ErrorKind normalizes an error into a short label for logs and metrics.
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := apperrors.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}
