package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/logger"
)

// RequestLogger logs every request with its status, latency and caller.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": latency.String(),
			"ip":      c.ClientIP(),
		}
		if actor, ok := ActorFrom(c); ok {
			fields["user_id"] = actor.ID.String()
			fields["role"] = string(actor.Role)
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logger.WithComponent("http").WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("[API] request failed")
		case status >= 400:
			entry.Warn("[API] request rejected")
		default:
			entry.Info("[API] request")
		}
	}
}
