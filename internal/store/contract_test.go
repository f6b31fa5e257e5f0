package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is the surface both implementations share.
type backend interface {
	Ping(ctx context.Context) error
	CreateIncident(ctx context.Context, inc *models.Incident, ev models.IncidentEvent) error
	GetIncident(ctx context.Context, id uuid.UUID) (models.Incident, error)
	ListIncidents(ctx context.Context, f IncidentFilter) ([]models.Incident, error)
	UpdateIncident(ctx context.Context, next models.Incident, expectedVersion int, ev models.IncidentEvent) (models.Incident, error)
	ListEvents(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentEvent, error)
	ReserveDailySlot(ctx context.Context, day time.Time, limit int) (int, error)
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, roles ...models.UserRole) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role models.UserRole) (models.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListActiveLocations(ctx context.Context) ([]models.PlantLocation, error)
	GetLocation(ctx context.Context, id uuid.UUID) (models.PlantLocation, error)
	UpsertLocation(ctx context.Context, loc *models.PlantLocation) error
}

var (
	_ backend = (*Gorm)(nil)
	_ backend = (*Memory)(nil)
)

// steppingClock advances one second per call so orderings are deterministic.
func steppingClock() context.Context {
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return clock.With(context.Background(), func() time.Time {
		t = t.Add(time.Second)
		return t
	})
}

func mustUser(t *testing.T, ctx context.Context, s backend, name string, role models.UserRole) models.User {
	t.Helper()
	u := models.User{
		Email:        name + "@plant.example",
		FullName:     name,
		Role:         role,
		PasswordHash: "x",
	}
	require.NoError(t, s.CreateUser(ctx, &u))
	return u
}

func mustIncident(t *testing.T, ctx context.Context, s backend, reporter *string) models.Incident {
	t.Helper()
	inc := models.NewIncident(reporter, models.SeverityMinor, clock.Now(ctx))
	ev := models.IncidentEvent{Type: models.EventTypeCreated, ToStatus: models.StatusNew}
	require.NoError(t, s.CreateIncident(ctx, &inc, ev))
	return inc
}

func transition(t *testing.T, ctx context.Context, s backend, op lifecycle.Operation, inc models.Incident, actor lifecycle.Actor, next models.Incident) models.Incident {
	t.Helper()
	ev := lifecycle.EventFor(op, inc, next, actor, clock.Now(ctx))
	out, err := s.UpdateIncident(ctx, next, inc.Version, ev)
	require.NoError(t, err)
	return out
}

func runContract(t *testing.T, newStore func(t *testing.T) backend) {
	t.Run("users", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)

		dana := mustUser(t, ctx, s, "dana", models.RoleManager)
		mustUser(t, ctx, s, "avi", models.RoleManager)
		mustUser(t, ctx, s, "root", models.RoleITAdmin)

		dup := models.User{Email: "DANA@plant.example", FullName: "x", Role: models.RoleManager, PasswordHash: "x"}
		assert.ErrorIs(t, s.CreateUser(ctx, &dup), models.ErrDuplicate)

		got, err := s.GetUserByEmail(ctx, " Dana@Plant.Example ")
		require.NoError(t, err)
		assert.Equal(t, dana.ID, got.ID)

		managers, err := s.ListUsers(ctx, models.RoleManager)
		require.NoError(t, err)
		require.Len(t, managers, 2)
		assert.Equal(t, "avi", managers[0].FullName)
		assert.Equal(t, "dana", managers[1].FullName)

		all, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		updated, err := s.UpdateUserRole(ctx, dana.ID, models.RoleITAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleITAdmin, updated.Role)

		require.NoError(t, s.UpdateUserPassword(ctx, dana.ID, "new-hash"))
		got, err = s.GetUser(ctx, dana.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)

		_, err = s.GetUser(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = s.UpdateUserRole(ctx, uuid.New(), models.RoleManager)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("create and read incident", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)

		name := "יוסי כהן"
		named := mustIncident(t, ctx, s, &name)
		anon := mustIncident(t, ctx, s, nil)

		got, err := s.GetIncident(ctx, named.ID)
		require.NoError(t, err)
		assert.False(t, got.IsAnonymous)
		assert.Equal(t, models.StatusNew, got.Status)
		assert.Equal(t, 1, got.Version)

		got, err = s.GetIncident(ctx, anon.ID)
		require.NoError(t, err)
		assert.True(t, got.IsAnonymous)

		events, err := s.ListEvents(ctx, named.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, models.EventTypeCreated, events[0].Type)
		assert.Nil(t, events[0].ActorID)

		_, err = s.GetIncident(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("versioned updates", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)

		m := mustUser(t, ctx, s, "m", models.RoleManager)
		o := mustUser(t, ctx, s, "o", models.RoleSafetyOfficer)
		officer := lifecycle.Actor{ID: o.ID, Role: o.Role}
		inc := mustIncident(t, ctx, s, nil)

		next, err := lifecycle.Assign(inc, m.ID, officer, clock.Now(ctx))
		require.NoError(t, err)
		assigned := transition(t, ctx, s, lifecycle.OpAssign, inc, officer, next)

		assert.Equal(t, 2, assigned.Version)
		assert.Equal(t, models.StatusAssigned, assigned.Status)
		require.NotNil(t, assigned.AssignedUser)
		assert.Equal(t, "m", assigned.AssignedUser.FullName)
		require.NotNil(t, assigned.Assigner)
		assert.Equal(t, "o", assigned.Assigner.FullName)

		// a second writer still holding version 1 loses
		other, err := lifecycle.Assign(inc, o.ID, officer, clock.Now(ctx))
		require.NoError(t, err)
		_, err = s.UpdateIncident(ctx, other, inc.Version, lifecycle.EventFor(lifecycle.OpAssign, inc, other, officer, clock.Now(ctx)))
		assert.ErrorIs(t, err, models.ErrConflict)

		got, err := s.GetIncident(ctx, inc.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, *got.AssignedTo)

		events, err := s.ListEvents(ctx, inc.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, models.EventTypeAssignment, events[1].Type)
		assert.Equal(t, models.StatusNew, events[1].FromStatus)

		ghost := next
		ghost.ID = uuid.New()
		_, err = s.UpdateIncident(ctx, ghost, 1, models.IncidentEvent{Type: models.EventTypeStatusChange, ToStatus: models.StatusAssigned})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("restore clears archive columns", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)

		a := mustUser(t, ctx, s, "a", models.RoleITAdmin)
		admin := lifecycle.Actor{ID: a.ID, Role: a.Role}
		inc := mustIncident(t, ctx, s, nil)

		reason := "duplicate"
		next, err := lifecycle.Archive(inc, &reason, admin, clock.Now(ctx))
		require.NoError(t, err)
		archived := transition(t, ctx, s, lifecycle.OpArchive, inc, admin, next)
		require.NotNil(t, archived.Archiver)
		assert.Equal(t, "duplicate", *archived.ArchiveReason)

		next, err = lifecycle.Restore(archived, admin)
		require.NoError(t, err)
		restored := transition(t, ctx, s, lifecycle.OpRestore, archived, admin, next)
		assert.Equal(t, models.StatusNew, restored.Status)
		assert.Nil(t, restored.ArchivedAt)
		assert.Nil(t, restored.ArchivedBy)
		assert.Nil(t, restored.ArchiveReason)
		assert.Nil(t, restored.Archiver)
		assert.Equal(t, 3, restored.Version)

		// the returned row is the committed one
		fresh, err := s.GetIncident(ctx, inc.ID)
		require.NoError(t, err)
		assert.Equal(t, fresh.Version, restored.Version)
		assert.Equal(t, fresh.Status, restored.Status)
		assert.True(t, fresh.UpdatedAt.Equal(restored.UpdatedAt))
	})

	t.Run("list filters", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)

		m := mustUser(t, ctx, s, "m", models.RoleManager)
		a := mustUser(t, ctx, s, "a", models.RoleITAdmin)
		admin := lifecycle.Actor{ID: a.ID, Role: a.Role}

		first := mustIncident(t, ctx, s, nil)
		second := mustIncident(t, ctx, s, nil)
		third := mustIncident(t, ctx, s, nil)

		next, err := lifecycle.Assign(second, m.ID, admin, clock.Now(ctx))
		require.NoError(t, err)
		transition(t, ctx, s, lifecycle.OpAssign, second, admin, next)

		next, err = lifecycle.Archive(third, nil, admin, clock.Now(ctx))
		require.NoError(t, err)
		transition(t, ctx, s, lifecycle.OpArchive, third, admin, next)

		open, err := s.ListIncidents(ctx, IncidentFilter{})
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, second.ID, open[0].ID)
		assert.Equal(t, first.ID, open[1].ID)

		asc, err := s.ListIncidents(ctx, IncidentFilter{Ascending: true})
		require.NoError(t, err)
		require.Len(t, asc, 2)
		assert.Equal(t, first.ID, asc[0].ID)

		onlyNew, err := s.ListIncidents(ctx, IncidentFilter{Statuses: []models.IncidentStatus{models.StatusNew}})
		require.NoError(t, err)
		require.Len(t, onlyNew, 1)
		assert.Equal(t, first.ID, onlyNew[0].ID)

		mine, err := s.ListIncidents(ctx, IncidentFilter{AssignedTo: &m.ID})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, second.ID, mine[0].ID)

		archived, err := s.ListIncidents(ctx, IncidentFilter{Archived: true})
		require.NoError(t, err)
		require.Len(t, archived, 1)
		assert.Equal(t, third.ID, archived[0].ID)
	})

	t.Run("daily slot", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)
		day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

		n, err := s.ReserveDailySlot(ctx, day, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = s.ReserveDailySlot(ctx, day, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = s.ReserveDailySlot(ctx, day, 2)
		assert.ErrorIs(t, err, models.ErrDailyLimitExceeded)

		n, err = s.ReserveDailySlot(ctx, day.AddDate(0, 0, 1), 2)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("delete user", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)

		m := mustUser(t, ctx, s, "m", models.RoleManager)
		spare := mustUser(t, ctx, s, "spare", models.RoleManager)
		a := mustUser(t, ctx, s, "a", models.RoleITAdmin)
		admin := lifecycle.Actor{ID: a.ID, Role: a.Role}

		inc := mustIncident(t, ctx, s, nil)
		next, err := lifecycle.Assign(inc, m.ID, admin, clock.Now(ctx))
		require.NoError(t, err)
		transition(t, ctx, s, lifecycle.OpAssign, inc, admin, next)

		assert.ErrorIs(t, s.DeleteUser(ctx, m.ID), models.ErrConflict)
		require.NoError(t, s.DeleteUser(ctx, spare.ID))
		assert.ErrorIs(t, s.DeleteUser(ctx, spare.ID), models.ErrNotFound)
	})

	t.Run("locations", func(t *testing.T) {
		ctx := steppingClock()
		s := newStore(t)

		ids := make(map[string]uuid.UUID)
		for _, name := range []string{"מחסן", "אולם ייצור", "חניה"} {
			loc := models.PlantLocation{NameHe: name, IsActive: true}
			require.NoError(t, s.UpsertLocation(ctx, &loc))
			ids[name] = loc.ID
		}
		parking := models.PlantLocation{NameHe: "חניה", IsActive: false}
		require.NoError(t, s.UpsertLocation(ctx, &parking))
		assert.Equal(t, ids["חניה"], parking.ID)
		assert.False(t, parking.IsActive)

		stored, err := s.GetLocation(ctx, parking.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)

		locs, err := s.ListActiveLocations(ctx)
		require.NoError(t, err)
		require.Len(t, locs, 2)
		assert.Equal(t, "אולם ייצור", locs[0].NameHe)
		assert.Equal(t, "מחסן", locs[1].NameHe)

		got, err := s.GetLocation(ctx, locs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, locs[0].NameHe, got.NameHe)
	})
}
