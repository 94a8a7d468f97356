package models

import (
	"time"

	"gorm.io/gorm"
)

// Survey is a poll with a title and a set of options.
type Survey struct {
	ID                   string      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID             string      `gorm:"type:uuid;not null;index" json:"author_id"`
	Author               *Profile    `gorm:"foreignKey:AuthorID" json:"author"`
	Title                string      `gorm:"size:200;not null" json:"title"`
	Description          *string     `gorm:"type:text" json:"description"`
	ImageURL             *string     `gorm:"type:text" json:"image_url"`
	PreferenceID         *string     `gorm:"type:uuid;index" json:"preference_id"`
	Preference           *Preference `gorm:"foreignKey:PreferenceID" json:"preference"`
	TargetCountry        *string     `gorm:"size:8" json:"target_country"`
	AllowMultipleAnswers bool        `gorm:"not null;default:false" json:"allow_multiple_answers"`
	IsPublished          bool        `gorm:"not null;default:false;index" json:"is_published"`
	GroupID              *string     `gorm:"type:uuid;index" json:"group_id"`
	IsPublicLink         bool        `gorm:"not null;default:false" json:"is_public_link"`
	CreatedAt            time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`

	Options   []SurveyOption `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"options"`
	Reactions []Reaction     `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"reactions"`
	Comments  []Comment      `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"comments"`
}

// TableName specifies the table name for GORM.
func (Survey) TableName() string {
	return "surveys"
}

func (s *Survey) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// SurveyOption is one selectable answer with its running tally.
type SurveyOption struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	SurveyID   string    `gorm:"type:uuid;not null;index" json:"survey_id"`
	OptionText string    `gorm:"size:200;not null" json:"option_text"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	VoteCount  int       `gorm:"not null;default:0" json:"vote_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (SurveyOption) TableName() string {
	return "survey_options"
}

func (o *SurveyOption) BeforeCreate(_ *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// UserVote is one cast vote. A user votes an option at most once.
type UserVote struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_vote_user_option;index:idx_vote_user_survey" json:"user_id"`
	SurveyID  string    `gorm:"type:uuid;not null;index:idx_vote_user_survey" json:"survey_id"`
	OptionID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_vote_user_option" json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (UserVote) TableName() string {
	return "user_votes"
}

func (v *UserVote) BeforeCreate(_ *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// Reaction is a user's single-slot reaction to a survey.
type Reaction struct {
	ID        string       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string       `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_user_survey" json:"user_id"`
	SurveyID  string       `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_user_survey;index" json:"survey_id"`
	Reaction  ReactionKind `gorm:"type:varchar(16);not null" json:"reaction"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Reaction) TableName() string {
	return "reactions"
}

func (r *Reaction) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Comment is an append-only remark on a survey.
type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *Profile  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SurveyID  string    `gorm:"type:uuid;not null;index" json:"survey_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
