// Package handlers holds endpoints that sit outside the versioned API.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/clock"
)

// Version is reported by /health and overridden at link time.
var Version = "1.0.0"

// Pinger is a dependency whose reachability /health reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServiceStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Version   string                   `json:"version"`
	Services  map[string]ServiceStatus `json:"services"`
}

// Health checks every dependency with a short timeout. Any failure turns the
// overall status to "error" and the response code to 503.
func Health(deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:    "ok",
			Timestamp: clock.Now(ctx).UTC().Format(time.RFC3339),
			Version:   Version,
			Services:  make(map[string]ServiceStatus, len(deps)),
		}
		statusCode := http.StatusOK

		for name, dep := range deps {
			st := ServiceStatus{Status: "ok"}
			if dep == nil {
				st = ServiceStatus{Status: "error", Error: "not initialized"}
			} else if err := dep.Ping(ctx); err != nil {
				st = ServiceStatus{Status: "error", Error: err.Error()}
			}
			if st.Status != "ok" {
				resp.Status = "error"
				statusCode = http.StatusServiceUnavailable
			}
			resp.Services[name] = st
		}

		c.JSON(statusCode, resp)
	}
}
