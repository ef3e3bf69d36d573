package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

// APIError is the JSON envelope returned by the management API.
type APIError struct {
	Error struct {
		Message  string `json:"message"`
		Kind     string `json:"kind"`
		Guidance string `json:"guidance,omitempty"`
	} `json:"error"`
}

// ToAPI converts any error into a status code and envelope. Errors outside the
// taxonomy are reported as internal errors.
func ToAPI(err error) (int, APIError) {
	var out APIError
	if err == nil {
		return http.StatusOK, out
	}
	out.Error.Message = err.Error()
	var ce *CameraError
	if stderrors.As(err, &ce) {
		out.Error.Kind = string(ce.Kind)
		out.Error.Guidance = Guidance(ce.Kind)
		return HTTPStatus(ce.Kind), out
	}
	out.Error.Kind = "internal_error"
	return http.StatusInternalServerError, out
}

// ToJSON renders the envelope.
func (e APIError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
