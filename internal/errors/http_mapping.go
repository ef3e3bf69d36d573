package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// MapHTTPStatus maps a non-success backend status to the taxonomy: 401 and 403
// become Unauthorized, everything else ConnectionFailed.
func MapHTTPStatus(op string, statusCode int, body []byte) *CameraError {
	msg := fmt.Sprintf("HTTP %d", statusCode)
	if snippet := bodySnippet(body); snippet != "" {
		msg += ": " + snippet
	}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &CameraError{Kind: KindUnauthorized, Op: op, Message: msg}
	default:
		return &CameraError{Kind: KindConnectionFailed, Op: op, Message: msg}
	}
}

// HTTPStatus is the status the management API answers with for a kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidConfiguration:
		return http.StatusBadRequest
	case KindMissingCredentials:
		return http.StatusPreconditionFailed
	case KindUnauthorized:
		return http.StatusBadGateway
	case KindConnectionFailed, KindInvalidResponse:
		return http.StatusBadGateway
	case KindFrameUnavailable:
		return http.StatusServiceUnavailable
	case KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Guidance is the actionable hint shown to the operator for a kind.
func Guidance(kind Kind) string {
	switch kind {
	case KindMissingCredentials, KindUnauthorized:
		return "open settings to manage cameras"
	case KindConnectionFailed, KindFrameUnavailable:
		return "retry"
	case KindInvalidConfiguration:
		return "check the camera configuration"
	case KindInvalidResponse:
		return "check the camera firmware or model"
	default:
		return ""
	}
}

func bodySnippet(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}
