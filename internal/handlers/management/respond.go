package management

import (
	"net/http"
	"strings"

	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/logging"
	"camgate-go/internal/storage"
	"github.com/gin-gonic/gin"
)

// respondError writes the API error envelope with an explicit kind.
func respondError(c *gin.Context, status int, kind, message string) {
	var body apperrors.APIError
	body.Error.Kind = kind
	body.Error.Message = strings.TrimSpace(message)
	c.Set("error_kind", kind)
	c.AbortWithStatusJSON(status, body)
}

// respondCameraError maps taxonomy and storage errors onto status codes.
func respondCameraError(c *gin.Context, err error) {
	switch {
	case storage.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
		return
	case storage.IsAlreadyExists(err):
		respondError(c, http.StatusConflict, "already_exists", err.Error())
		return
	}
	status, body := apperrors.ToAPI(err)
	c.Set("error_kind", logging.ErrorKind(err))
	c.AbortWithStatusJSON(status, body)
}

func respondValidationError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "invalid_request", "invalid json: "+err.Error())
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondValidationError(c, err)
		return false
	}
	return true
}

func setNoCacheHeaders(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
