// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// Profile is the public account record of a user.
type Profile struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	DisplayName *string   `gorm:"size:120" json:"display_name"`
	Country     *string   `gorm:"size:8" json:"country"`
	Language    *string   `gorm:"size:8" json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns an ID and stores the email lowercased.
func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	p.Email = NormalizeEmail(p.Email)
	return nil
}

// NormalizeEmail trims and lowercases an email for exact matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRole grants a platform role to a user.
type UserRole struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      AppRole   `gorm:"type:varchar(16);primaryKey" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (UserRole) TableName() string {
	return "user_roles"
}
