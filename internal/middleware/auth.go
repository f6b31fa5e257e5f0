package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/auth"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/models"
)

const actorKey = "actor"

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   message,
		"code":    "unauthenticated",
		"message": "נדרשת התחברות",
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", true
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), true
}

// Users resolves the account behind a token.
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
}

// resolve parses the token and reloads its account. The stored role replaces
// the one in the token, so deleted or demoted users lose access at once.
func resolve(c *gin.Context, tokens *auth.TokenManager, users Users, raw string) (lifecycle.Actor, error) {
	actor, err := tokens.Parse(c.Request.Context(), raw)
	if err != nil {
		return lifecycle.Actor{}, err
	}
	u, err := users.Get(c.Request.Context(), actor.ID)
	if err != nil {
		return lifecycle.Actor{}, err
	}
	actor.Role = u.Role
	return actor, nil
}

// AuthMiddleware requires a valid bearer token for an existing account and
// stores the caller in the request context.
func AuthMiddleware(tokens *auth.TokenManager, users Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, present := bearerToken(c)
		if !present {
			unauthorized(c, "Authorization header required")
			return
		}
		if raw == "" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		actor, err := resolve(c, tokens, users, raw)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrNotFound):
			unauthorized(c, "Account no longer exists")
			return
		case errors.Is(err, models.ErrBackendUnavailable):
			logger.WithError(err, "auth").Error("Failed to load token owner")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   err.Error(),
				"code":    "backend_unavailable",
				"message": "שגיאת רשת. נסה שוב.",
			})
			return
		default:
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalAuth records the caller when a valid token for an existing account
// is sent and lets the request through otherwise. Used by the public report
// form, which staff can also submit while logged in.
func OptionalAuth(tokens *auth.TokenManager, users Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, present := bearerToken(c); present && raw != "" {
			if actor, err := resolve(c, tokens, users, raw); err == nil {
				c.Set(actorKey, actor)
			}
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated caller, if any.
func ActorFrom(c *gin.Context) (lifecycle.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return lifecycle.Actor{}, false
	}
	actor, ok := v.(lifecycle.Actor)
	return actor, ok
}

// RequireAdmin rejects callers without the it_admin role. Must run after
// AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			unauthorized(c, "User not authenticated")
			return
		}
		if !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Admin access required",
				"code":    "forbidden",
				"message": "אין הרשאה לפעולה זו",
			})
			return
		}
		c.Next()
	}
}
