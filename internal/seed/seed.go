// Package seed loads the initial users and plant locations from JSON files.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/safetyfirst/backend/internal/auth"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/models"
)

// UserData represents the structure of users in the JSON file
type UserData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// JSONData represents the structure of the JSON files
type JSONData struct {
	Users     []UserData `json:"users"`
	Locations []string   `json:"locations"`
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
}

type LocationEnsurer interface {
	Ensure(ctx context.Context, names []string) (int, error)
}

// ReadFile tries each path in order and decodes the first one found.
func ReadFile(paths ...string) (JSONData, string, error) {
	var data JSONData
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return data, p, fmt.Errorf("read %s: %w", p, err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return data, p, fmt.Errorf("decode %s: %w", p, err)
		}
		return data, p, nil
	}
	return data, "", fmt.Errorf("no seed file found in %s", strings.Join(paths, ", "))
}

// Users creates every listed user that does not exist yet. Existing emails
// are skipped; invalid entries are logged and skipped.
func Users(ctx context.Context, store UserStore, users []UserData) (created int, err error) {
	for _, ud := range users {
		role := models.UserRole(strings.ToLower(ud.Role))
		if !role.Valid() {
			logger.Warn("Unknown role in seed file, skipping user", map[string]interface{}{
				"email": ud.Email,
				"role":  ud.Role,
			})
			continue
		}
		if err := auth.ValidatePassword(ud.Password); err != nil {
			logger.Warn("Seed password violates password rules, skipping user", map[string]interface{}{
				"email": ud.Email,
				"error": err.Error(),
			})
			continue
		}
		hash, err := auth.HashPassword(ud.Password)
		if err != nil {
			return created, err
		}

		u := models.User{
			Email:        ud.Email,
			FullName:     strings.TrimSpace(ud.FullName),
			Role:         role,
			PasswordHash: hash,
		}
		if err := store.CreateUser(ctx, &u); err != nil {
			if errors.Is(err, models.ErrDuplicate) {
				logger.Info("User already exists", map[string]interface{}{"email": ud.Email})
				continue
			}
			return created, fmt.Errorf("create user %s: %w", ud.Email, err)
		}
		logger.Info("Created user", map[string]interface{}{
			"email": u.Email,
			"role":  string(u.Role),
		})
		created++
	}
	return created, nil
}

// Run seeds users and locations from data.
func Run(ctx context.Context, data JSONData, users UserStore, locations LocationEnsurer) error {
	created, err := Users(ctx, users, data.Users)
	if err != nil {
		return err
	}
	n, err := locations.Ensure(ctx, data.Locations)
	if err != nil {
		return err
	}
	logger.Info("Database seeding completed", map[string]interface{}{
		"users_created": created,
		"locations":     n,
	})
	return nil
}
