package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IncidentStatus string
type IncidentSeverity string

const (
	StatusNew      IncidentStatus = "new"
	StatusAssigned IncidentStatus = "assigned"
	StatusResolved IncidentStatus = "resolved"
	StatusArchived IncidentStatus = "archived"
)

const (
	SeverityUnknown  IncidentSeverity = "unknown"
	SeverityNearMiss IncidentSeverity = "near_miss"
	SeverityMinor    IncidentSeverity = "minor"
	SeverityMajor    IncidentSeverity = "major"
	SeverityCritical IncidentSeverity = "critical"
)

var statusLabels = map[IncidentStatus]string{
	StatusNew:      "חדש",
	StatusAssigned: "משוייך",
	StatusResolved: "טופל",
	StatusArchived: "בארכיון",
}

var severityLabels = map[IncidentSeverity]string{
	SeverityUnknown:  "לא ידוע",
	SeverityNearMiss: "כמעט תאונה",
	SeverityMinor:    "קל",
	SeverityMajor:    "בינוני",
	SeverityCritical: "חמור",
}

func (s IncidentStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s IncidentStatus) Label() string {
	return statusLabels[s]
}

func ParseStatus(raw string) (IncidentStatus, error) {
	s := IncidentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return s, nil
}

func (s IncidentSeverity) Valid() bool {
	_, ok := severityLabels[s]
	return ok
}

func (s IncidentSeverity) Label() string {
	return severityLabels[s]
}

// ParseSeverity accepts both "near_miss" and the hyphenated "near-miss"
// the mobile client sends.
func ParseSeverity(raw string) (IncidentSeverity, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	s := IncidentSeverity(norm)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown severity %q", ErrValidation, raw)
	}
	return s, nil
}

type Incident struct {
	ID           uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	Status       IncidentStatus   `json:"status" gorm:"type:varchar(16);not null;default:'new';index"`
	Severity     IncidentSeverity `json:"severity" gorm:"type:varchar(16);not null"`
	ReporterName *string          `json:"reporter_name"`
	IsAnonymous  bool             `json:"is_anonymous" gorm:"not null"`
	LocationID   *uuid.UUID       `json:"location_id" gorm:"type:uuid"`
	Location     *PlantLocation   `json:"location,omitempty" gorm:"foreignKey:LocationID"`
	IncidentDate time.Time        `json:"incident_date" gorm:"not null"`
	Description  *string          `json:"description" gorm:"type:text"`
	PhotoURL     *string          `json:"photo_url"`

	AssignedTo   *uuid.UUID `json:"assigned_to" gorm:"type:uuid;index"`
	AssignedUser *User      `json:"assigned_user,omitempty" gorm:"foreignKey:AssignedTo"`
	AssignedBy   *uuid.UUID `json:"assigned_by" gorm:"type:uuid"`
	Assigner     *User      `json:"assigner,omitempty" gorm:"foreignKey:AssignedBy"`
	AssignedAt   *time.Time `json:"assigned_at"`

	ResolutionNotes *string    `json:"resolution_notes" gorm:"type:text"`
	ResolvedAt      *time.Time `json:"resolved_at"`

	ArchivedAt    *time.Time `json:"archived_at" gorm:"index"`
	ArchivedBy    *uuid.UUID `json:"archived_by" gorm:"type:uuid"`
	Archiver      *User      `json:"archiver,omitempty" gorm:"foreignKey:ArchivedBy"`
	ArchiveReason *string    `json:"archive_reason" gorm:"type:text"`

	// Version increments on every lifecycle transition and guards
	// conditional updates against lost writes.
	Version   int       `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Incident) TableName() string {
	return "incidents"
}

// NewIncident builds a report in the "new" state. Anonymity is derived from
// the reporter name and cannot be set on its own.
func NewIncident(reporterName *string, severity IncidentSeverity, now time.Time) Incident {
	inc := Incident{
		ID:           uuid.New(),
		Status:       StatusNew,
		Severity:     severity,
		ReporterName: TrimOrNil(reporterName),
		IncidentDate: now,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	inc.IsAnonymous = inc.ReporterName == nil
	return inc
}

func (i *Incident) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Version == 0 {
		i.Version = 1
	}
	i.ReporterName = TrimOrNil(i.ReporterName)
	i.IsAnonymous = i.ReporterName == nil
	return nil
}

// Validate checks the record-level invariants that hold in every state.
func (i *Incident) Validate() error {
	if !i.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, i.Status)
	}
	if !i.Severity.Valid() {
		return fmt.Errorf("%w: invalid severity %q", ErrValidation, i.Severity)
	}
	if i.IsAnonymous != (TrimOrNil(i.ReporterName) == nil) {
		return fmt.Errorf("%w: is_anonymous does not match reporter_name", ErrValidation)
	}
	set := 0
	for _, present := range []bool{i.AssignedTo != nil, i.AssignedBy != nil, i.AssignedAt != nil} {
		if present {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("%w: assignment fields must be set together", ErrValidation)
	}
	if (i.ArchivedAt == nil) != (i.ArchivedBy == nil) {
		return fmt.Errorf("%w: archive fields must be set together", ErrValidation)
	}
	if (i.Status == StatusArchived) != (i.ArchivedAt != nil) {
		return fmt.Errorf("%w: archive fields do not match status %q", ErrValidation, i.Status)
	}
	return nil
}

// TrimOrNil trims whitespace and returns nil for empty input.
func TrimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
