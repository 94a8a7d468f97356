package testutil

import (
	"testing"

	"pulsevote/internal/database"
	"pulsevote/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an in-memory SQLite database with the full schema.
// The pool is pinned to one connection so every query sees the same memory DB.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateProfile inserts a profile with a fake email.
func CreateProfile(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()
	name := gofakeit.Name()
	p := &models.Profile{Email: gofakeit.Email(), DisplayName: &name}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateAdmin inserts a profile holding the admin role.
func CreateAdmin(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()
	p := CreateProfile(t, db)
	require.NoError(t, db.Create(&models.UserRole{UserID: p.ID, Role: models.AppRoleAdmin}).Error)
	return p
}

// CreatePreference inserts a catalog entry with the given name.
func CreatePreference(t *testing.T, db *gorm.DB, name string) *models.Preference {
	t.Helper()
	p := &models.Preference{Name: name}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SurveyOpts customizes CreateSurvey.
type SurveyOpts struct {
	PreferenceID  *string
	GroupID       *string
	AllowMultiple bool
	Unpublished   bool
	Options       []string
}

// CreateSurvey inserts a published survey with its options.
func CreateSurvey(t *testing.T, db *gorm.DB, authorID string, opts SurveyOpts) *models.Survey {
	t.Helper()
	options := opts.Options
	if len(options) == 0 {
		options = []string{"Yes", "No"}
	}
	s := &models.Survey{
		AuthorID:             authorID,
		Title:                gofakeit.Sentence(5),
		PreferenceID:         opts.PreferenceID,
		GroupID:              opts.GroupID,
		AllowMultipleAnswers: opts.AllowMultiple,
		IsPublished:          !opts.Unpublished,
	}
	require.NoError(t, db.Omit("Options").Create(s).Error)
	for i, text := range options {
		o := models.SurveyOption{SurveyID: s.ID, OptionText: text, Position: i}
		require.NoError(t, db.Create(&o).Error)
		s.Options = append(s.Options, o)
	}
	return s
}
