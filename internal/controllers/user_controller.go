package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/safetyfirst/backend/internal/services"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// userView adds the Hebrew role label.
type userView struct {
	models.User
	RoleLabel string `json:"role_label"`
}

func usersView(users []models.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{User: u, RoleLabel: u.Role.Label()})
	}
	return out
}

// Managers lists the users incidents can be assigned to.
func (uc *UserController) Managers(c *gin.Context) {
	users, err := uc.users.ListManagers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": usersView(users)})
}

// Admin: list users, optionally filtered by ?role=
func (uc *UserController) GetUsers(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var role *models.UserRole
	if raw := c.Query("role"); raw != "" {
		r := models.UserRole(raw)
		role = &r
	}
	users, err := uc.users.List(c.Request.Context(), a, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": usersView(users), "total": len(users)})
}

// Admin: add a new user
func (uc *UserController) AddUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := uc.users.Create(c.Request.Context(), a, services.CreateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     models.UserRole(req.Role),
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userView{User: user, RoleLabel: user.Role.Label()})
}

// Admin: change a user's role
func (uc *UserController) UpdateUserRole(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := uc.users.UpdateRole(c.Request.Context(), a, id, models.UserRole(req.Role))
	if err != nil {
		if errors.Is(err, models.ErrForbidden) && id == a.ID {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Error:   err.Error(),
				Code:    "self_demotion",
				Message: "לא ניתן להסיר הרשאת מנהל מעצמך",
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView{User: user, RoleLabel: user.Role.Label()})
}

// Admin: set a new password for a user
func (uc *UserController) ResetPassword(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := uc.users.ResetPassword(c.Request.Context(), a, id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Admin: remove a user by ID
func (uc *UserController) RemoveUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := uc.users.Delete(c.Request.Context(), a, id); err != nil {
		if errors.Is(err, models.ErrConflict) {
			c.AbortWithStatusJSON(http.StatusConflict, apiError{
				Error:   err.Error(),
				Code:    "user_in_use",
				Message: "לא ניתן למחוק משתמש המשויך לדיווחים",
			})
			return
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
