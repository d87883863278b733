package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a panic into a 500 that carries the request id, so a
// client report can be matched to the logged stack.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			requestID := RequestIDFrom(c)
			log.Error().
				Interface("panic", r).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("request_id", requestID).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "internal_server_error",
				"request_id": requestID,
			})
		}()
		c.Next()
	}
}
