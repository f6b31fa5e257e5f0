package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventType string

const (
	EventTypeCreated      EventType = "CREATED"
	EventTypeAssignment   EventType = "ASSIGNMENT"
	EventTypeStatusChange EventType = "STATUS_CHANGE"
	EventTypeArchive      EventType = "ARCHIVE"
	EventTypeRestore      EventType = "RESTORE"
)

// IncidentEvent is one row of an incident's append-only history.
type IncidentEvent struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	IncidentID uuid.UUID      `json:"incident_id" gorm:"type:uuid;not null;index"`
	ActorID    *uuid.UUID     `json:"actor_id" gorm:"type:uuid"`
	Actor      *User          `json:"actor,omitempty" gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL"`
	Type       EventType      `json:"type" gorm:"type:varchar(32);not null"`
	FromStatus IncidentStatus `json:"from_status,omitempty" gorm:"type:varchar(16)"`
	ToStatus   IncidentStatus `json:"to_status" gorm:"type:varchar(16);not null"`
	Note       *string        `json:"note" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (IncidentEvent) TableName() string {
	return "incident_events"
}

func (e *IncidentEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
