package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const localOrigin = "http://localhost:5173"

// CORSMiddleware allows the web client's origin. An empty origin means the
// local dev server.
func CORSMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = localOrigin
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, If-Match")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "ETag")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
