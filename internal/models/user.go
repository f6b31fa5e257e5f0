package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleManager       UserRole = "manager"
	RoleSafetyOfficer UserRole = "safety_officer"
	RolePlantManager  UserRole = "plant_manager"
	RoleITAdmin       UserRole = "it_admin"
)

var roleLabels = map[UserRole]string{
	RoleManager:       "מנהל",
	RoleSafetyOfficer: "ממונה בטיחות",
	RolePlantManager:  "מנהל מפעל",
	RoleITAdmin:       "מנהל מערכת",
}

func (r UserRole) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label returns the Hebrew display name of the role.
func (r UserRole) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

func (r UserRole) IsAdmin() bool {
	return r == RoleITAdmin
}

// CanAssign reports whether holders of the role may hand incidents to managers.
func (r UserRole) CanAssign() bool {
	switch r {
	case RoleManager, RoleSafetyOfficer, RoleITAdmin:
		return true
	}
	return false
}

// Managed reports whether the admin panel can create users with this role.
func (r UserRole) Managed() bool {
	return r == RoleManager || r == RoleITAdmin
}

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"full_name"`
	Role         UserRole  `json:"role" gorm:"type:varchar(32);not null;default:'manager';index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
