package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

// BodyLimit caps request bodies. A declared Content-Length over the cap is
// rejected before the handler runs; undeclared bodies are cut off while read,
// which makes binding fail with a 400.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Request body too large")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
