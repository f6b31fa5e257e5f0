// Package store persists incidents, their history, users, locations and the
// daily submission counter. Gorm is the postgres implementation; Memory backs
// tests and local development.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/models"
	"gorm.io/gorm"
)

// IncidentFilter narrows ListIncidents. The zero value lists every
// non-archived incident, newest first.
type IncidentFilter struct {
	Statuses   []models.IncidentStatus
	AssignedTo *uuid.UUID
	// Archived switches to the archive view, ordered by archived_at.
	Archived  bool
	Ascending bool
}

// Includes reports whether inc passes the filter.
func (f IncidentFilter) Includes(inc models.Incident) bool {
	if f.Archived != (inc.Status == models.StatusArchived) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == inc.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.AssignedTo != nil && (inc.AssignedTo == nil || *inc.AssignedTo != *f.AssignedTo) {
		return false
	}
	return true
}

var domainErrors = []error{
	models.ErrNotFound,
	models.ErrConflict,
	models.ErrDuplicate,
	models.ErrDailyLimitExceeded,
	models.ErrBackendUnavailable,
}

// mapError converts gorm errors to domain errors. Context cancellation and
// errors that are already domain kinds pass through.
func mapError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %v: %w", entity, id, err)
	}
	for _, kind := range domainErrors {
		if errors.Is(err, kind) {
			return err
		}
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %v: %w", entity, id, models.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %v: %w", entity, id, models.ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s %v is still referenced: %w", entity, id, models.ErrConflict)
	}
	return fmt.Errorf("%s %v: %w: %w", entity, id, models.ErrBackendUnavailable, err)
}

// nullable turns a nil pointer into an untyped nil for column maps.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
