package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/auth"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/models"
)

// validate applies the rules gin uses for binding tags.
var validate = validator.New()

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, roles ...models.UserRole) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role models.UserRole) (models.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if isKind(err, models.ErrNotFound) {
			return models.User{}, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
		}
		return models.User{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return models.User{}, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListManagers returns the users incidents can be assigned to.
func (s *UserService) ListManagers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx, models.RoleManager)
}

func (s *UserService) List(ctx context.Context, actor lifecycle.Actor, role *models.UserRole) ([]models.User, error) {
	if err := requireAdmin(actor, "list users"); err != nil {
		return nil, err
	}
	if role != nil {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, *role)
		}
		return s.store.ListUsers(ctx, *role)
	}
	return s.store.ListUsers(ctx)
}

type CreateUserInput struct {
	Email    string
	FullName string
	Role     models.UserRole
	Password string
}

func (in CreateUserInput) Validate() error {
	if err := validate.Var(strings.TrimSpace(in.Email), "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email address", models.ErrValidation)
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.FullName)) < 2 {
		return fmt.Errorf("%w: full name must be at least 2 characters", models.ErrValidation)
	}
	if !in.Role.Managed() {
		return fmt.Errorf("%w: role %q cannot be assigned from the admin panel", models.ErrValidation, in.Role)
	}
	return auth.ValidatePassword(in.Password)
}

func (s *UserService) Create(ctx context.Context, actor lifecycle.Actor, in CreateUserInput) (models.User, error) {
	if err := requireAdmin(actor, "create user"); err != nil {
		return models.User{}, err
	}
	if err := in.Validate(); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		Email:        strings.TrimSpace(in.Email),
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return models.User{}, err
	}
	logger.WithUser(actor.ID).WithFields(map[string]interface{}{
		"new_user_id": u.ID.String(),
		"role":        string(u.Role),
	}).Info("User created")
	return u, nil
}

// UpdateRole changes a user's role. Admins cannot demote themselves.
func (s *UserService) UpdateRole(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, role models.UserRole) (models.User, error) {
	if err := requireAdmin(actor, "update role"); err != nil {
		return models.User{}, err
	}
	if !role.Managed() {
		return models.User{}, fmt.Errorf("%w: role %q cannot be assigned from the admin panel", models.ErrValidation, role)
	}
	if id == actor.ID && !role.IsAdmin() {
		return models.User{}, fmt.Errorf("demote self: %w", models.ErrForbidden)
	}
	u, err := s.store.UpdateUserRole(ctx, id, role)
	if err != nil {
		return models.User{}, err
	}
	logger.WithUser(actor.ID).WithFields(map[string]interface{}{
		"target_user_id": id.String(),
		"role":           string(role),
	}).Info("User role updated")
	return u, nil
}

func (s *UserService) ResetPassword(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, password string) error {
	if err := requireAdmin(actor, "reset password"); err != nil {
		return err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, id, hash); err != nil {
		return err
	}
	logger.WithUser(actor.ID).WithField("target_user_id", id.String()).Info("User password reset")
	return nil
}

// Delete removes a user. Admins cannot delete themselves, and users still
// referenced by incidents are kept (ErrConflict).
func (s *UserService) Delete(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor, "delete user"); err != nil {
		return err
	}
	if id == actor.ID {
		return fmt.Errorf("delete self: %w", models.ErrForbidden)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	logger.WithUser(actor.ID).WithField("target_user_id", id.String()).Info("User deleted")
	return nil
}
