package controllers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/middleware"
	"github.com/safetyfirst/backend/internal/models"
)

func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid %s: %w", name, err))
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated caller. The route group guarantees one is
// present, so a miss is answered with 401.
func actor(c *gin.Context) (lifecycle.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, models.ErrUnauthenticated)
	}
	return a, ok
}

// expectedVersion reads the If-Match header. Both 3 and "3" (and the weak
// W/"3" form) are accepted; a missing header means no check.
func expectedVersion(c *gin.Context) (*int, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return nil, true
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		badRequest(c, fmt.Errorf("invalid If-Match header %q", c.GetHeader("If-Match")))
		return nil, false
	}
	return &v, true
}

func setETag(c *gin.Context, inc models.Incident) {
	c.Header("ETag", strconv.Quote(strconv.Itoa(inc.Version)))
}
