package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/logging"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const internalErrorKind = "internal_error"

// Recovery turns handler panics into a 500 with the API error envelope and
// logs the stack with the request fields.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logging.WithReq(c, log.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("panic recovered")

			c.Set("error_kind", internalErrorKind)
			var body apperrors.APIError
			body.Error.Kind = internalErrorKind
			body.Error.Message = "Internal server error"
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
