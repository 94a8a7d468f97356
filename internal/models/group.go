package models

import (
	"time"

	"gorm.io/gorm"
)

// Group is a private collection of surveys shared by its members.
type Group struct {
	ID          string        `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string        `gorm:"size:100;not null" json:"name"`
	Description *string       `gorm:"type:text" json:"description"`
	Type        GroupType     `gorm:"type:varchar(16);not null;default:'family'" json:"type"`
	OwnerID     string        `gorm:"type:uuid;not null;index" json:"owner_id"`
	Members     []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members"`
	// SurveyCount is computed at query time.
	SurveyCount int       `gorm:"->;-:migration" json:"survey_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Group) TableName() string {
	return "survey_groups"
}

func (g *Group) BeforeCreate(_ *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// GroupMember maps users to groups and tracks role.
type GroupMember struct {
	GroupID  string    `gorm:"type:uuid;primaryKey" json:"group_id"`
	UserID   string    `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	User     *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Role     GroupRole `gorm:"type:varchar(16);not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// TableName specifies the table name for GORM.
func (GroupMember) TableName() string {
	return "group_members"
}
