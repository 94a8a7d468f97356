package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pulsevote/internal/featureflags"
	"pulsevote/internal/models"
	"pulsevote/internal/notifications"
	"pulsevote/internal/repository"
	"pulsevote/internal/suggest"
	"pulsevote/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// generatorStub is a stub for Generator.
type generatorStub struct {
	suggestionsFn func(context.Context, string, string) ([]suggest.Draft, error)
	imageFn       func(context.Context, string) (string, error)
}

func (g *generatorStub) GenerateSuggestions(ctx context.Context, region, topic string) ([]suggest.Draft, error) {
	return g.suggestionsFn(ctx, region, topic)
}

func (g *generatorStub) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return g.imageFn(ctx, prompt)
}

func fiveDrafts() []suggest.Draft {
	out := make([]suggest.Draft, 0, suggest.DraftCount)
	categories := []models.Category{
		models.CategoryMusic, models.CategorySports, models.CategoryFun,
		models.CategoryScience, models.CategoryCooking,
	}
	for i, c := range categories {
		out = append(out, suggest.Draft{
			Title:    fmt.Sprintf("Question %d?", i+1),
			Options:  []string{"Yes", "No"},
			Category: c,
		})
	}
	return out
}

func newPublisher(t *testing.T, gen Generator, flags string) (*SurveyPublisher, *gorm.DB, *recordingEvents) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	events := &recordingEvents{}
	svc := NewSurveyPublisher(
		repository.NewSurveyRepository(db),
		repository.NewPreferenceRepository(db),
		repository.NewProfileRepository(db),
		gen,
		nil,
		featureflags.NewManager(flags),
		events,
	)
	return svc, db, events
}

func TestPublishManual(t *testing.T) {
	svc, db, events := newPublisher(t, nil, "")
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, db)
	music := testutil.CreatePreference(t, db, "Music")

	survey, err := svc.PublishManual(ctx, admin.ID, PublishSurveyInput{
		Title:                " Best album? ",
		Options:              []string{"A", "B", "C"},
		PreferenceID:         music.ID,
		TargetCountry:        "fr",
		AllowMultipleAnswers: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Best album?", survey.Title)
	assert.True(t, survey.IsPublished)
	require.NotNil(t, survey.TargetCountry)
	assert.Equal(t, "FR", *survey.TargetCountry)
	assert.Equal(t, []string{notifications.EventSurveyPublished}, events.types())

	stored, err := repository.NewSurveyRepository(db).GetByID(ctx, survey.ID)
	require.NoError(t, err)
	require.Len(t, stored.Options, 3)
	assert.Equal(t, "C", stored.Options[2].OptionText)
}

func TestPublishManualValidation(t *testing.T) {
	svc, db, events := newPublisher(t, nil, "")
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, db)

	_, err := svc.PublishManual(ctx, admin.ID, PublishSurveyInput{Title: "", Options: []string{"a", "b"}})
	assertValidationError(t, err)
	_, err = svc.PublishManual(ctx, admin.ID, PublishSurveyInput{Title: "Q", Options: []string{"a", "b", "c", "d", "e", "f", "g"}})
	assertValidationError(t, err)
	_, err = svc.PublishManual(ctx, admin.ID, PublishSurveyInput{Title: "Q", Options: []string{"a", "b"}, TargetCountry: "France"})
	assertValidationError(t, err)
	_, err = svc.PublishManual(ctx, admin.ID, PublishSurveyInput{Title: "Q", Options: []string{"a", "b"}, PreferenceID: "nope"})
	assertValidationError(t, err)

	survey, err := svc.PublishManual(ctx, admin.ID, PublishSurveyInput{Title: "Q", Options: []string{"a", "b"}, TargetCountry: "all"})
	require.NoError(t, err)
	assert.Nil(t, survey.TargetCountry)
	assert.Len(t, events.types(), 1)
}

func TestPublishDraftResolvesCategory(t *testing.T) {
	svc, db, _ := newPublisher(t, nil, "")
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, db)
	sports := testutil.CreatePreference(t, db, "Sports")

	draft := suggest.Draft{Title: "Who wins?", Options: []string{"Home", "Away"}, Category: models.CategorySports}
	survey, err := svc.PublishDraft(ctx, admin.ID, draft, "https://cdn.example/i.jpg", "US")
	require.NoError(t, err)
	require.NotNil(t, survey.PreferenceID)
	assert.Equal(t, sports.ID, *survey.PreferenceID)
	require.NotNil(t, survey.ImageURL)

	// No catalog entry for the category leaves the survey untagged.
	draft.Category = models.CategoryScandals
	survey, err = svc.PublishDraft(ctx, admin.ID, draft, "", "")
	require.NoError(t, err)
	assert.Nil(t, survey.PreferenceID)
}

func TestAutoPublish(t *testing.T) {
	drafts := fiveDrafts()
	drafts[2].Options = []string{"only one"}
	var gotRegion string
	gen := &generatorStub{suggestionsFn: func(_ context.Context, region, _ string) ([]suggest.Draft, error) {
		gotRegion = region
		return drafts, nil
	}}
	svc, db, events := newPublisher(t, gen, "auto_publish=on")
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, db)
	testutil.CreatePreference(t, db, "Music")

	res, err := svc.AutoPublish(ctx, "DE")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 4, res.PublishedCount)
	assert.Len(t, res.SurveyIDs, 4)
	assert.Equal(t, "DE", gotRegion)
	assert.Len(t, events.types(), 4)

	var authored int64
	require.NoError(t, db.Model(&models.Survey{}).Where("author_id = ?", admin.ID).Count(&authored).Error)
	assert.EqualValues(t, 4, authored)
}

func TestAutoPublishGuards(t *testing.T) {
	gen := &generatorStub{suggestionsFn: func(context.Context, string, string) ([]suggest.Draft, error) {
		return fiveDrafts(), nil
	}}

	svc, _, _ := newPublisher(t, gen, "auto_publish=off")
	_, err := svc.AutoPublish(context.Background(), "")
	assertForbiddenError(t, err)

	svc, _, _ = newPublisher(t, gen, "auto_publish=on")
	_, err = svc.AutoPublish(context.Background(), "")
	assertValidationError(t, err)

	gen.suggestionsFn = func(context.Context, string, string) ([]suggest.Draft, error) {
		return nil, suggest.ErrRateLimited
	}
	svc, db, _ := newPublisher(t, gen, "auto_publish=on")
	testutil.CreateAdmin(t, db)
	_, err = svc.AutoPublish(context.Background(), "")
	assert.True(t, errors.Is(err, suggest.ErrRateLimited))
}

func TestSuggest(t *testing.T) {
	var gotTopic string
	gen := &generatorStub{suggestionsFn: func(_ context.Context, _, topic string) ([]suggest.Draft, error) {
		gotTopic = topic
		return fiveDrafts(), nil
	}}
	svc, _, _ := newPublisher(t, gen, "ai_suggestions=on")
	ctx := context.Background()

	drafts, err := svc.Suggest(ctx, "admin", "US", "Music")
	require.NoError(t, err)
	assert.Len(t, drafts, suggest.DraftCount)
	assert.Equal(t, "music", gotTopic)

	_, err = svc.Suggest(ctx, "admin", "US", "all")
	require.NoError(t, err)
	assert.Empty(t, gotTopic)

	_, err = svc.Suggest(ctx, "admin", "US", "gardening")
	assertValidationError(t, err)

	off, _, _ := newPublisher(t, gen, "ai_suggestions=off")
	_, err = off.Suggest(ctx, "admin", "US", "")
	assertForbiddenError(t, err)
}

func TestIllustrateStoresGeneratedImage(t *testing.T) {
	ref := pngDataURL(t, 32, 32)
	gen := &generatorStub{imageFn: func(context.Context, string) (string, error) { return ref, nil }}
	svc, _, _ := newPublisher(t, gen, "ai_suggestions=on")
	images, repo, _ := newImageService(t, 10)
	svc.images = images

	url, err := svc.Illustrate(context.Background(), "admin", "a cat")
	require.NoError(t, err)
	assert.Contains(t, url, "/media/images/")
	assert.Equal(t, 1, repo.Len())

	_, err = svc.Illustrate(context.Background(), "admin", "  ")
	assertValidationError(t, err)

	gen.imageFn = func(context.Context, string) (string, error) { return "", suggest.ErrNoImage }
	_, err = svc.Illustrate(context.Background(), "admin", "a dog")
	assert.ErrorIs(t, err, suggest.ErrNoImage)
}
