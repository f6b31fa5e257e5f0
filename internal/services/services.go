// Package services holds the application operations behind the HTTP API.
// Each service declares the narrow store interface it consumes.
package services

import (
	"errors"
	"fmt"

	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/models"
)

func isKind(err, kind error) bool {
	return errors.Is(err, kind)
}

func requireAdmin(actor lifecycle.Actor, action string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%s: %w", action, models.ErrForbidden)
	}
	return nil
}
