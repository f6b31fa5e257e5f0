package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/models"
)

// Memory is an in-process store with the same semantics as Gorm, including
// versioned updates, unique emails and the daily counter.
type Memory struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]models.Incident
	events    map[uuid.UUID][]models.IncidentEvent
	users     map[uuid.UUID]models.User
	locations map[uuid.UUID]models.PlantLocation
	counters  map[string]int

	// Err, when set, is returned by every call as a backend failure.
	Err error
}

func NewMemory() *Memory {
	return &Memory{
		incidents: make(map[uuid.UUID]models.Incident),
		events:    make(map[uuid.UUID][]models.IncidentEvent),
		users:     make(map[uuid.UUID]models.User),
		locations: make(map[uuid.UUID]models.PlantLocation),
		counters:  make(map[string]int),
	}
}

func (m *Memory) fail() error {
	if m.Err != nil {
		return fmt.Errorf("%w: %w", models.ErrBackendUnavailable, m.Err)
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fail()
}

// hydrate fills the association pointers the way Gorm's preloads do.
func (m *Memory) hydrate(inc models.Incident) models.Incident {
	userRef := func(id *uuid.UUID) *models.User {
		if id == nil {
			return nil
		}
		if u, ok := m.users[*id]; ok {
			return &u
		}
		return nil
	}
	inc.AssignedUser = userRef(inc.AssignedTo)
	inc.Assigner = userRef(inc.AssignedBy)
	inc.Archiver = userRef(inc.ArchivedBy)
	inc.Location = nil
	if inc.LocationID != nil {
		if loc, ok := m.locations[*inc.LocationID]; ok {
			inc.Location = &loc
		}
	}
	return inc
}

func stripAssociations(inc models.Incident) models.Incident {
	inc.Location = nil
	inc.AssignedUser = nil
	inc.Assigner = nil
	inc.Archiver = nil
	return inc
}

func (m *Memory) CreateIncident(ctx context.Context, inc *models.Incident, ev models.IncidentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}

	if inc.ID == uuid.Nil {
		inc.ID = uuid.New()
	}
	if _, exists := m.incidents[inc.ID]; exists {
		return fmt.Errorf("incident %s: %w", inc.ID, models.ErrDuplicate)
	}
	now := clock.Now(ctx)
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	inc.UpdatedAt = now
	if inc.Version == 0 {
		inc.Version = 1
	}
	inc.ReporterName = models.TrimOrNil(inc.ReporterName)
	inc.IsAnonymous = inc.ReporterName == nil

	m.incidents[inc.ID] = stripAssociations(*inc)
	m.appendEvent(inc.ID, ev, now)
	return nil
}

func (m *Memory) appendEvent(incidentID uuid.UUID, ev models.IncidentEvent, now time.Time) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.IncidentID = incidentID
	ev.Actor = nil
	m.events[incidentID] = append(m.events[incidentID], ev)
}

func (m *Memory) GetIncident(ctx context.Context, id uuid.UUID) (models.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return models.Incident{}, err
	}

	inc, ok := m.incidents[id]
	if !ok {
		return models.Incident{}, fmt.Errorf("incident %s: %w", id, models.ErrNotFound)
	}
	return m.hydrate(inc), nil
}

func (m *Memory) ListIncidents(ctx context.Context, f IncidentFilter) ([]models.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return nil, err
	}

	out := make([]models.Incident, 0)
	for _, inc := range m.incidents {
		if f.Includes(inc) {
			out = append(out, m.hydrate(inc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		if f.Archived && out[i].ArchivedAt != nil && out[j].ArchivedAt != nil && !out[i].ArchivedAt.Equal(*out[j].ArchivedAt) {
			a, b = *out[i].ArchivedAt, *out[j].ArchivedAt
		}
		if f.Ascending {
			return a.Before(b)
		}
		return a.After(b)
	})
	return out, nil
}

func (m *Memory) UpdateIncident(ctx context.Context, next models.Incident, expectedVersion int, ev models.IncidentEvent) (models.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.Incident{}, err
	}

	cur, ok := m.incidents[next.ID]
	if !ok {
		return models.Incident{}, fmt.Errorf("incident %s: %w", next.ID, models.ErrNotFound)
	}
	if cur.Version != expectedVersion {
		return models.Incident{}, fmt.Errorf("incident %s changed since version %d: %w", next.ID, expectedVersion, models.ErrConflict)
	}

	now := clock.Now(ctx)
	cur.Status = next.Status
	cur.AssignedTo = next.AssignedTo
	cur.AssignedBy = next.AssignedBy
	cur.AssignedAt = next.AssignedAt
	cur.ResolutionNotes = next.ResolutionNotes
	cur.ResolvedAt = next.ResolvedAt
	cur.ArchivedAt = next.ArchivedAt
	cur.ArchivedBy = next.ArchivedBy
	cur.ArchiveReason = next.ArchiveReason
	cur.Version++
	cur.UpdatedAt = now

	m.incidents[cur.ID] = cur
	m.appendEvent(cur.ID, ev, now)
	return m.hydrate(cur), nil
}

func (m *Memory) ListEvents(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return nil, err
	}

	src := m.events[incidentID]
	out := make([]models.IncidentEvent, len(src))
	for i, ev := range src {
		if ev.ActorID != nil {
			if u, ok := m.users[*ev.ActorID]; ok {
				ev.Actor = &u
			}
		}
		out[i] = ev
	}
	return out, nil
}

func (m *Memory) ReserveDailySlot(ctx context.Context, day time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}

	key := day.Format("2006-01-02")
	if m.counters[key] >= limit {
		return limit, fmt.Errorf("%d reports on %s: %w", limit, key, models.ErrDailyLimitExceeded)
	}
	m.counters[key]++
	return m.counters[key], nil
}

// DailyCount returns the stored counter for day.
func (m *Memory) DailyCount(day time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[day.Format("2006-01-02")]
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, models.ErrDuplicate)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := clock.Now(ctx)
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return models.User{}, err
	}

	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return models.User{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
}

func (m *Memory) ListUsers(ctx context.Context, roles ...models.UserRole) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return nil, err
	}

	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		if len(roles) == 0 || containsRole(roles, u.Role) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func containsRole(roles []models.UserRole, r models.UserRole) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func (m *Memory) UpdateUserRole(ctx context.Context, id uuid.UUID, role models.UserRole) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.User{}, err
	}

	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	u.Role = role
	u.UpdatedAt = clock.Now(ctx)
	m.users[id] = u
	return u, nil
}

func (m *Memory) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	u.PasswordHash = hash
	u.UpdatedAt = clock.Now(ctx)
	m.users[id] = u
	return nil
}

// DeleteUser mirrors the foreign keys of the postgres schema: incidents
// referencing the user block deletion, history rows lose their actor.
func (m *Memory) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	for _, inc := range m.incidents {
		for _, ref := range []*uuid.UUID{inc.AssignedTo, inc.AssignedBy, inc.ArchivedBy} {
			if ref != nil && *ref == id {
				return fmt.Errorf("user %s is still referenced: %w", id, models.ErrConflict)
			}
		}
	}
	for incID, evs := range m.events {
		for i := range evs {
			if evs[i].ActorID != nil && *evs[i].ActorID == id {
				evs[i].ActorID = nil
			}
		}
		m.events[incID] = evs
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) ListActiveLocations(ctx context.Context) ([]models.PlantLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return nil, err
	}

	out := make([]models.PlantLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		if loc.IsActive {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameHe < out[j].NameHe })
	return out, nil
}

func (m *Memory) GetLocation(ctx context.Context, id uuid.UUID) (models.PlantLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return models.PlantLocation{}, err
	}

	loc, ok := m.locations[id]
	if !ok {
		return models.PlantLocation{}, fmt.Errorf("location %s: %w", id, models.ErrNotFound)
	}
	return loc, nil
}

func (m *Memory) UpsertLocation(ctx context.Context, loc *models.PlantLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}

	now := clock.Now(ctx)
	for id, existing := range m.locations {
		if existing.NameHe == loc.NameHe {
			existing.IsActive = loc.IsActive
			existing.UpdatedAt = now
			m.locations[id] = existing
			*loc = existing
			return nil
		}
	}
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	loc.CreatedAt, loc.UpdatedAt = now, now
	m.locations[loc.ID] = *loc
	return nil
}
