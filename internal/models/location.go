package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlantLocation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	NameHe    string    `json:"name_he" gorm:"uniqueIndex;not null"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PlantLocation) TableName() string {
	return "plant_locations"
}

func (l *PlantLocation) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// DailyReportCount tracks submissions per calendar day in the plant's timezone.
type DailyReportCount struct {
	Day   time.Time `json:"day" gorm:"type:date;primaryKey"`
	Count int       `json:"count" gorm:"not null;default:0"`
}

func (DailyReportCount) TableName() string {
	return "daily_report_counts"
}
