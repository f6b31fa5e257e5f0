package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/auth"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/safetyfirst/backend/internal/services"
)

type AuthController struct {
	users  *services.UserService
	tokens *auth.TokenManager
}

func NewAuthController(users *services.UserService, tokens *auth.TokenManager) *AuthController {
	return &AuthController{users: users, tokens: tokens}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := ac.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Error:   "Invalid credentials",
				Code:    "invalid_credentials",
				Message: "שם משתמש או סיסמה שגויים",
			})
			return
		}
		respondError(c, err)
		return
	}

	token, expiresAt, err := ac.tokens.Issue(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt,
	})
}

// Me returns the caller's current record, so role changes show up without a
// new login.
func (ac *AuthController) Me(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	user, err := ac.users.Get(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
