package models

import (
	"time"

	"gorm.io/gorm"
)

// Image is a normalized generated image kept in the object store.
type Image struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Hash       string    `gorm:"size:64;not null;uniqueIndex" json:"hash"`
	UploaderID string    `gorm:"type:uuid;not null;index" json:"uploader_id"`
	StorageKey string    `gorm:"size:255;not null" json:"storage_key"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	MimeType   string    `gorm:"size:32" json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Image) TableName() string {
	return "images"
}

func (i *Image) BeforeCreate(_ *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
