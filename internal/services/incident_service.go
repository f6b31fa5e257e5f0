package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/safetyfirst/backend/internal/notify"
	"github.com/safetyfirst/backend/internal/store"
)

// ErrInvalidAssignee is returned when the assign target is not an existing
// manager.
var ErrInvalidAssignee = fmt.Errorf("%w: assignee must be an existing manager", models.ErrValidation)

// IncidentStore is the persistence the incident workflow needs.
type IncidentStore interface {
	CreateIncident(ctx context.Context, inc *models.Incident, ev models.IncidentEvent) error
	GetIncident(ctx context.Context, id uuid.UUID) (models.Incident, error)
	ListIncidents(ctx context.Context, f store.IncidentFilter) ([]models.Incident, error)
	UpdateIncident(ctx context.Context, next models.Incident, expectedVersion int, ev models.IncidentEvent) (models.Incident, error)
	ListEvents(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentEvent, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Publisher receives a notice after every successful change.
type Publisher interface {
	Publish(n notify.Notice) bool
}

type IncidentService struct {
	store   IncidentStore
	users   UserLookup
	notices Publisher
}

func NewIncidentService(store IncidentStore, users UserLookup, notices Publisher) *IncidentService {
	return &IncidentService{store: store, users: users, notices: notices}
}

// ListQuery holds the list view filters.
type ListQuery struct {
	Statuses   []models.IncidentStatus
	AssignedTo *uuid.UUID
	Ascending  bool
}

// List returns non-archived incidents.
func (s *IncidentService) List(ctx context.Context, q ListQuery) ([]models.Incident, error) {
	for _, st := range q.Statuses {
		if st == models.StatusArchived {
			return nil, fmt.Errorf("%w: archived incidents have their own list", models.ErrValidation)
		}
	}
	return s.store.ListIncidents(ctx, store.IncidentFilter{
		Statuses:   q.Statuses,
		AssignedTo: q.AssignedTo,
		Ascending:  q.Ascending,
	})
}

// ListMine returns the open incidents assigned to actor.
func (s *IncidentService) ListMine(ctx context.Context, actor lifecycle.Actor) ([]models.Incident, error) {
	return s.store.ListIncidents(ctx, store.IncidentFilter{AssignedTo: &actor.ID})
}

// ListArchived returns archived incidents, most recently archived first.
func (s *IncidentService) ListArchived(ctx context.Context, actor lifecycle.Actor) ([]models.Incident, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("list archived: %w", models.ErrForbidden)
	}
	return s.store.ListIncidents(ctx, store.IncidentFilter{Archived: true})
}

func (s *IncidentService) Get(ctx context.Context, id uuid.UUID) (models.Incident, error) {
	return s.store.GetIncident(ctx, id)
}

// Events returns the history of an incident, oldest first.
func (s *IncidentService) Events(ctx context.Context, id uuid.UUID) ([]models.IncidentEvent, error) {
	if _, err := s.store.GetIncident(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

// Assign hands the incident to a manager.
func (s *IncidentService) Assign(ctx context.Context, actor lifecycle.Actor, id, assignee uuid.UUID, expectedVersion *int) (models.Incident, error) {
	return s.transition(ctx, actor, id, lifecycle.OpAssign, expectedVersion,
		func(cur models.Incident, now time.Time) (models.Incident, error) {
			next, err := lifecycle.Assign(cur, assignee, actor, now)
			if err != nil {
				return cur, err
			}
			if err := s.checkAssignee(ctx, assignee); err != nil {
				return cur, err
			}
			return next, nil
		})
}

func (s *IncidentService) checkAssignee(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if isKind(err, models.ErrNotFound) {
			return fmt.Errorf("user %s: %w", id, ErrInvalidAssignee)
		}
		return err
	}
	if u.Role != models.RoleManager {
		return fmt.Errorf("user %s has role %s: %w", id, u.Role, ErrInvalidAssignee)
	}
	return nil
}

func (s *IncidentService) Resolve(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, notes *string, expectedVersion *int) (models.Incident, error) {
	return s.transition(ctx, actor, id, lifecycle.OpResolve, expectedVersion,
		func(cur models.Incident, now time.Time) (models.Incident, error) {
			return lifecycle.Resolve(cur, notes, actor, now)
		})
}

func (s *IncidentService) Reopen(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, expectedVersion *int) (models.Incident, error) {
	return s.transition(ctx, actor, id, lifecycle.OpReopen, expectedVersion,
		func(cur models.Incident, now time.Time) (models.Incident, error) {
			return lifecycle.Reopen(cur, actor)
		})
}

func (s *IncidentService) Archive(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, reason *string, expectedVersion *int) (models.Incident, error) {
	return s.transition(ctx, actor, id, lifecycle.OpArchive, expectedVersion,
		func(cur models.Incident, now time.Time) (models.Incident, error) {
			return lifecycle.Archive(cur, reason, actor, now)
		})
}

func (s *IncidentService) Restore(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, expectedVersion *int) (models.Incident, error) {
	return s.transition(ctx, actor, id, lifecycle.OpRestore, expectedVersion,
		func(cur models.Incident, now time.Time) (models.Incident, error) {
			return lifecycle.Restore(cur, actor)
		})
}

// transition loads the incident, applies one lifecycle operation and writes
// it back conditionally on the loaded version. When the caller supplied a
// version it must match the stored one.
func (s *IncidentService) transition(
	ctx context.Context,
	actor lifecycle.Actor,
	id uuid.UUID,
	op lifecycle.Operation,
	expectedVersion *int,
	apply func(cur models.Incident, now time.Time) (models.Incident, error),
) (models.Incident, error) {
	log := logger.WithIncident(id, string(op)).WithField("actor_id", actor.ID.String())

	cur, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return models.Incident{}, err
	}

	now := clock.Now(ctx)
	next, err := apply(cur, now)
	if err != nil {
		log.WithField("error", err.Error()).Info("Incident transition rejected")
		return models.Incident{}, err
	}

	if expectedVersion != nil && *expectedVersion != cur.Version {
		return models.Incident{}, fmt.Errorf("incident %s is at version %d, request expected %d: %w",
			id, cur.Version, *expectedVersion, models.ErrConflict)
	}

	if err := next.Validate(); err != nil {
		log.WithField("error", err.Error()).Error("Transition produced an invalid incident")
		return models.Incident{}, err
	}

	ev := lifecycle.EventFor(op, cur, next, actor, now)
	updated, err := s.store.UpdateIncident(ctx, next, cur.Version, ev)
	if err != nil {
		entry := log.WithField("error", err.Error())
		if lifecycle.IsKind(err) {
			entry.Info("Incident changed concurrently")
		} else {
			entry.Warn("Incident update failed")
		}
		return models.Incident{}, err
	}

	log.WithFields(map[string]interface{}{
		"from_status": string(cur.Status),
		"to_status":   string(updated.Status),
		"version":     updated.Version,
	}).Info("Incident transition applied")

	s.notices.Publish(notify.NoticeFor(ev, updated))
	return updated, nil
}
