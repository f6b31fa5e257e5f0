// Package lifecycle holds the legal status transitions of an incident and the
// metadata each transition stamps. Every function is pure: it receives the
// current record, the acting user and the time, and returns the next record.
// On error the returned record is the unmodified input.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/models"
)

// Actor is the identity invoking a transition.
type Actor struct {
	ID   uuid.UUID
	Role models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

type Operation string

const (
	OpAssign  Operation = "assign"
	OpResolve Operation = "resolve"
	OpReopen  Operation = "reopen"
	OpArchive Operation = "archive"
	OpRestore Operation = "restore"
)

// Operations lists every transition in table order.
var Operations = []Operation{OpAssign, OpResolve, OpReopen, OpArchive, OpRestore}

// Aliases so callers of this package can match kinds without importing models.
var (
	ErrNotFound           = models.ErrNotFound
	ErrForbidden          = models.ErrForbidden
	ErrInvalidState       = models.ErrInvalidState
	ErrConflict           = models.ErrConflict
	ErrBackendUnavailable = models.ErrBackendUnavailable
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	Op   Operation
	From models.IncidentStatus
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s from %q: %v", e.Op, e.From, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func reject(op Operation, from models.IncidentStatus, kind error) error {
	return &TransitionError{Op: op, From: from, Err: kind}
}

// Assign hands the incident to assignee. Re-assigning an assigned incident
// overwrites the previous assignment.
func Assign(inc models.Incident, assignee uuid.UUID, actor Actor, now time.Time) (models.Incident, error) {
	if !actor.Role.CanAssign() {
		return inc, reject(OpAssign, inc.Status, ErrForbidden)
	}
	if inc.Status != models.StatusNew && inc.Status != models.StatusAssigned {
		return inc, reject(OpAssign, inc.Status, ErrInvalidState)
	}
	if assignee == uuid.Nil {
		return inc, reject(OpAssign, inc.Status, fmt.Errorf("%w: assignee is required", models.ErrValidation))
	}

	next := inc
	next.Status = models.StatusAssigned
	next.AssignedTo = ptr(assignee)
	next.AssignedBy = ptr(actor.ID)
	next.AssignedAt = ptr(now)
	return next, nil
}

// Resolve closes an assigned incident. Only the current assignee may do it.
func Resolve(inc models.Incident, notes *string, actor Actor, now time.Time) (models.Incident, error) {
	if inc.Status != models.StatusAssigned {
		return inc, reject(OpResolve, inc.Status, ErrInvalidState)
	}
	if inc.AssignedTo == nil || *inc.AssignedTo != actor.ID {
		return inc, reject(OpResolve, inc.Status, ErrForbidden)
	}

	next := inc
	next.Status = models.StatusResolved
	next.ResolvedAt = ptr(now)
	next.ResolutionNotes = models.TrimOrNil(notes)
	return next, nil
}

// Reopen moves a resolved incident back to assigned. Resolution fields stay.
func Reopen(inc models.Incident, actor Actor) (models.Incident, error) {
	if inc.Status != models.StatusResolved {
		return inc, reject(OpReopen, inc.Status, ErrInvalidState)
	}

	next := inc
	next.Status = models.StatusAssigned
	return next, nil
}

// Archive soft-deletes the incident. Assignment and resolution history stay
// underneath the archive flag.
func Archive(inc models.Incident, reason *string, actor Actor, now time.Time) (models.Incident, error) {
	if !actor.IsAdmin() {
		return inc, reject(OpArchive, inc.Status, ErrForbidden)
	}
	if inc.Status == models.StatusArchived {
		return inc, reject(OpArchive, inc.Status, ErrInvalidState)
	}

	next := inc
	next.Status = models.StatusArchived
	next.ArchivedAt = ptr(now)
	next.ArchivedBy = ptr(actor.ID)
	next.ArchiveReason = models.TrimOrNil(reason)
	return next, nil
}

// Restore returns an archived incident to new, whatever it was before.
func Restore(inc models.Incident, actor Actor) (models.Incident, error) {
	if !actor.IsAdmin() {
		return inc, reject(OpRestore, inc.Status, ErrForbidden)
	}
	if inc.Status != models.StatusArchived {
		return inc, reject(OpRestore, inc.Status, ErrInvalidState)
	}

	next := inc
	next.Status = models.StatusNew
	next.ArchivedAt = nil
	next.ArchivedBy = nil
	next.ArchiveReason = nil
	next.Archiver = nil
	return next, nil
}

// Allowed returns the operations actor may perform on inc right now.
func Allowed(inc models.Incident, actor Actor) []Operation {
	var ops []Operation
	probe := time.Time{}
	for _, op := range Operations {
		var err error
		switch op {
		case OpAssign:
			_, err = Assign(inc, actor.ID, actor, probe)
		case OpResolve:
			_, err = Resolve(inc, nil, actor, probe)
		case OpReopen:
			_, err = Reopen(inc, actor)
		case OpArchive:
			_, err = Archive(inc, nil, actor, probe)
		case OpRestore:
			_, err = Restore(inc, actor)
		}
		if err == nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// EventFor describes the history row recorded for a successful transition.
func EventFor(op Operation, prev, next models.Incident, actor Actor, now time.Time) models.IncidentEvent {
	ev := models.IncidentEvent{
		IncidentID: next.ID,
		ActorID:    ptr(actor.ID),
		FromStatus: prev.Status,
		ToStatus:   next.Status,
		CreatedAt:  now,
	}
	switch op {
	case OpAssign:
		ev.Type = models.EventTypeAssignment
		if next.AssignedTo != nil {
			ev.Note = ptr(next.AssignedTo.String())
		}
	case OpArchive:
		ev.Type = models.EventTypeArchive
		ev.Note = next.ArchiveReason
	case OpRestore:
		ev.Type = models.EventTypeRestore
	case OpResolve:
		ev.Type = models.EventTypeStatusChange
		ev.Note = next.ResolutionNotes
	default:
		ev.Type = models.EventTypeStatusChange
	}
	return ev
}

// IsKind reports whether err is one of the lifecycle error kinds.
func IsKind(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrForbidden, ErrInvalidState, ErrConflict} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T {
	return &v
}
