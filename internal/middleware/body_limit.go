package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for form fields and part headers around the
// image itself.
const multipartOverhead = 1 << 20

// BodyLimit caps request bodies at maxBytes plus multipart overhead. Reads
// past the cap fail with *http.MaxBytesError.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
		}
		c.Next()
	}
}
