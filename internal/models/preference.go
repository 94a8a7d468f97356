package models

import (
	"time"

	"gorm.io/gorm"
)

// Preference is a topic tag used to label surveys and filter the feed.
type Preference struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:80;not null;uniqueIndex" json:"name"`
	Icon      *string   `gorm:"size:16" json:"icon"`
	Color     *string   `gorm:"size:32" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Preference) TableName() string {
	return "preferences"
}

func (p *Preference) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// UserPreference records that a user opted into a preference.
type UserPreference struct {
	UserID       string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	PreferenceID string    `gorm:"type:uuid;primaryKey;index" json:"preference_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (UserPreference) TableName() string {
	return "user_preferences"
}
