package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/safetyfirst/backend/internal/notify"
	"github.com/safetyfirst/backend/internal/storage"
	"github.com/safetyfirst/backend/internal/store"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (p *recordingPublisher) Publish(n notify.Notice) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
	return true
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.notices))
	for _, n := range p.notices {
		out = append(out, n.Type)
	}
	return out
}

type fixture struct {
	ctx       context.Context
	store     *store.Memory
	photos    *storage.Memory
	published *recordingPublisher

	incidents *IncidentService
	reports   *ReportService
	users     *UserService
	locations *LocationService

	manager  models.User
	manager2 models.User
	officer  models.User
	admin    models.User
	plant    models.User
	location models.PlantLocation
}

func actorOf(u models.User) lifecycle.Actor {
	return lifecycle.Actor{ID: u.ID, Role: u.Role}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     store.NewMemory(),
		photos:    storage.NewMemory(),
		published: &recordingPublisher{},
	}

	current := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	f.ctx = clock.With(context.Background(), func() time.Time {
		current = current.Add(time.Second)
		return current
	})

	f.incidents = NewIncidentService(f.store, f.store, f.published)
	f.reports = NewReportService(f.store, f.photos, f.published, ReportOptions{DailyLimit: 15})
	f.users = NewUserService(f.store)
	f.locations = NewLocationService(f.store)

	f.manager = f.user(t, "Moshe Levi", models.RoleManager)
	f.manager2 = f.user(t, "Dana Cohen", models.RoleManager)
	f.officer = f.user(t, "Avi Mizrahi", models.RoleSafetyOfficer)
	f.admin = f.user(t, "Admin", models.RoleITAdmin)
	f.plant = f.user(t, "Plant Head", models.RolePlantManager)

	f.location = models.PlantLocation{NameHe: "מחסן", IsActive: true}
	require.NoError(t, f.store.UpsertLocation(f.ctx, &f.location))
	return f
}

func (f *fixture) user(t *testing.T, name string, role models.UserRole) models.User {
	t.Helper()
	u := models.User{
		Email:        name + "@plant.example",
		FullName:     name,
		Role:         role,
		PasswordHash: "unused",
	}
	require.NoError(t, f.store.CreateUser(context.Background(), &u))
	return u
}

func (f *fixture) submit(t *testing.T, reporter *string) models.Incident {
	t.Helper()
	inc, err := f.reports.Submit(f.ctx, nil, SubmitInput{
		ReporterName: reporter,
		Severity:     "minor",
		LocationID:   &f.location.ID,
	})
	require.NoError(t, err)
	return inc
}

func strp(s string) *string { return &s }

func intp(i int) *int { return &i }
