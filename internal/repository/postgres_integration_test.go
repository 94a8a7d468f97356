//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pulsevote/internal/database"
	"pulsevote/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pulsevote"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(ctx, db))
	return db
}

func TestPostgres_ConcurrentSingleAnswerVotes(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	user := &models.Profile{Email: "voter@example.com"}
	require.NoError(t, db.Create(user).Error)
	survey := &models.Survey{AuthorID: user.ID, Title: "Tabs or spaces?", IsPublished: true}
	require.NoError(t, NewSurveyRepository(db).CreateWithOptions(ctx, survey, []string{"Tabs", "Spaces"}))

	repo := NewInteractionRepository(db)
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.CastVote(ctx, &models.UserVote{
				UserID: user.ID, SurveyID: survey.ID, OptionID: survey.Options[i].ID,
			})
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyVoted):
			rejected++
		default:
			t.Errorf("unexpected vote error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	var total int64
	require.NoError(t, db.Model(&models.SurveyOption{}).
		Where("survey_id = ?", survey.ID).
		Select("COALESCE(SUM(vote_count), 0)").Scan(&total).Error)
	assert.Equal(t, int64(1), total)
}

func TestPostgres_DuplicateVoteTranslated(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	user := &models.Profile{Email: "multi@example.com"}
	require.NoError(t, db.Create(user).Error)
	survey := &models.Survey{AuthorID: user.ID, Title: "Pick any", IsPublished: true, AllowMultipleAnswers: true}
	require.NoError(t, NewSurveyRepository(db).CreateWithOptions(ctx, survey, []string{"A", "B"}))

	repo := NewInteractionRepository(db)
	vote := func() error {
		return repo.CastVote(ctx, &models.UserVote{UserID: user.ID, SurveyID: survey.ID, OptionID: survey.Options[0].ID})
	}
	require.NoError(t, vote())
	assert.ErrorIs(t, vote(), ErrDuplicateVote)
}
