package database

import "pulsevote/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.UserRole{},
		&models.Preference{},
		&models.UserPreference{},
		&models.Group{},
		&models.GroupMember{},
		&models.Survey{},
		&models.SurveyOption{},
		&models.UserVote{},
		&models.Reaction{},
		&models.Comment{},
		&models.Image{},
	}
}
