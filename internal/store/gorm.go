package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm is the postgres-backed store.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrBackendUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", models.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Gorm) withDetail(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Location").
		Preload("AssignedUser").
		Preload("Assigner").
		Preload("Archiver")
}

// ---------------------------------------------------------------------------
// Incidents
// ---------------------------------------------------------------------------

// CreateIncident inserts inc together with its CREATED history row.
func (s *Gorm) CreateIncident(ctx context.Context, inc *models.Incident, ev models.IncidentEvent) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(inc).Error; err != nil {
			return err
		}
		ev.IncidentID = inc.ID
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = inc.CreatedAt
		}
		return tx.Omit(clause.Associations).Create(&ev).Error
	})
	return mapError(err, "incident", inc.ID)
}

func (s *Gorm) GetIncident(ctx context.Context, id uuid.UUID) (models.Incident, error) {
	var inc models.Incident
	err := s.withDetail(s.db.WithContext(ctx)).First(&inc, "id = ?", id).Error
	return inc, mapError(err, "incident", id)
}

func (s *Gorm) ListIncidents(ctx context.Context, f IncidentFilter) ([]models.Incident, error) {
	q := s.db.WithContext(ctx).Model(&models.Incident{}).
		Preload("Location").
		Preload("AssignedUser")

	if f.Archived {
		q = q.Where("status = ?", models.StatusArchived)
	} else {
		q = q.Where("status <> ?", models.StatusArchived)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status = ANY(?)", pq.Array(statuses))
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *f.AssignedTo)
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	if f.Archived {
		q = q.Order("archived_at " + dir)
	}
	q = q.Order("created_at " + dir)

	var out []models.Incident
	if err := q.Find(&out).Error; err != nil {
		return nil, mapError(err, "incidents", "list")
	}
	return out, nil
}

// UpdateIncident writes the lifecycle fields of next if the stored version
// still equals expectedVersion, appends ev and reads the row back, all in one
// transaction. Zero affected rows means ErrNotFound when the row is gone,
// ErrConflict otherwise.
func (s *Gorm) UpdateIncident(ctx context.Context, next models.Incident, expectedVersion int, ev models.IncidentEvent) (models.Incident, error) {
	now := clock.Now(ctx)
	var updated models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Incident{}).
			Where("id = ? AND version = ?", next.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":           next.Status,
				"assigned_to":      nullable(next.AssignedTo),
				"assigned_by":      nullable(next.AssignedBy),
				"assigned_at":      nullable(next.AssignedAt),
				"resolution_notes": nullable(next.ResolutionNotes),
				"resolved_at":      nullable(next.ResolvedAt),
				"archived_at":      nullable(next.ArchivedAt),
				"archived_by":      nullable(next.ArchivedBy),
				"archive_reason":   nullable(next.ArchiveReason),
				"version":          gorm.Expr("version + 1"),
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Incident{}).Where("id = ?", next.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("incident %s: %w", next.ID, models.ErrNotFound)
			}
			return fmt.Errorf("incident %s changed since version %d: %w", next.ID, expectedVersion, models.ErrConflict)
		}

		ev.IncidentID = next.ID
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}
		if err := tx.Omit(clause.Associations).Create(&ev).Error; err != nil {
			return err
		}
		return s.withDetail(tx).First(&updated, "id = ?", next.ID).Error
	})
	if err != nil {
		return models.Incident{}, mapError(err, "incident", next.ID)
	}
	return updated, nil
}

func (s *Gorm) ListEvents(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentEvent, error) {
	var out []models.IncidentEvent
	err := s.db.WithContext(ctx).
		Preload("Actor").
		Where("incident_id = ?", incidentID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapError(err, "incident events", incidentID)
	}
	return out, nil
}

// ReserveDailySlot atomically counts one submission against day. The upsert
// only increments while the count is below limit; no returned row means the
// ceiling has been reached.
func (s *Gorm) ReserveDailySlot(ctx context.Context, day time.Time, limit int) (int, error) {
	const q = `
INSERT INTO daily_report_counts (day, count) VALUES (?, 1)
ON CONFLICT (day) DO UPDATE SET count = daily_report_counts.count + 1
WHERE daily_report_counts.count < ?
RETURNING count`

	var counts []int
	if err := s.db.WithContext(ctx).Raw(q, day.Format("2006-01-02"), limit).Scan(&counts).Error; err != nil {
		return 0, mapError(err, "daily counter", day.Format("2006-01-02"))
	}
	if len(counts) == 0 {
		return limit, fmt.Errorf("%d reports on %s: %w", limit, day.Format("2006-01-02"), models.ErrDailyLimitExceeded)
	}
	return counts[0], nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Gorm) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return mapError(s.db.WithContext(ctx).Create(u).Error, "user", u.Email)
}

func (s *Gorm) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return u, mapError(err, "user", id)
}

func (s *Gorm) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	return u, mapError(err, "user", email)
}

// ListUsers returns users ordered by name, optionally limited to roles.
func (s *Gorm) ListUsers(ctx context.Context, roles ...models.UserRole) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("full_name ASC")
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}
	var out []models.User
	if err := q.Find(&out).Error; err != nil {
		return nil, mapError(err, "users", "list")
	}
	return out, nil
}

func (s *Gorm) UpdateUserRole(ctx context.Context, id uuid.UUID, role models.UserRole) (models.User, error) {
	return s.updateUser(ctx, id, map[string]interface{}{"role": role})
}

func (s *Gorm) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := s.updateUser(ctx, id, map[string]interface{}{"password_hash": hash})
	return err
}

func (s *Gorm) updateUser(ctx context.Context, id uuid.UUID, cols map[string]interface{}) (models.User, error) {
	cols["updated_at"] = clock.Now(ctx)
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return models.User{}, mapError(res.Error, "user", id)
	}
	if res.RowsAffected == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// DeleteUser hard-deletes a user. Users still referenced by incidents are
// kept and reported as ErrConflict.
func (s *Gorm) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return mapError(res.Error, "user", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Locations
// ---------------------------------------------------------------------------

func (s *Gorm) ListActiveLocations(ctx context.Context) ([]models.PlantLocation, error) {
	var out []models.PlantLocation
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name_he ASC").Find(&out).Error
	if err != nil {
		return nil, mapError(err, "locations", "list")
	}
	return out, nil
}

func (s *Gorm) GetLocation(ctx context.Context, id uuid.UUID) (models.PlantLocation, error) {
	var loc models.PlantLocation
	err := s.db.WithContext(ctx).First(&loc, "id = ?", id).Error
	return loc, mapError(err, "location", id)
}

// UpsertLocation inserts a location by Hebrew name or updates its active flag.
// loc is refreshed from the stored row, so on conflict it carries the
// existing id.
func (s *Gorm) UpsertLocation(ctx context.Context, loc *models.PlantLocation) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_he"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "updated_at"}),
		}).Create(loc).Error
		if err != nil {
			return err
		}
		var stored models.PlantLocation
		if err := tx.First(&stored, "name_he = ?", loc.NameHe).Error; err != nil {
			return err
		}
		*loc = stored
		return nil
	})
	return mapError(err, "location", loc.NameHe)
}
