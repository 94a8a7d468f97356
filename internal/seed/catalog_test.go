package seed

import (
	"context"
	"testing"

	"pulsevote/internal/cache"
	"pulsevote/internal/models"
	"pulsevote/internal/repository"
	"pulsevote/internal/service"
	"pulsevote/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogCoversEveryCategory(t *testing.T) {
	entries, err := LoadCatalog()
	require.NoError(t, err)

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name] = true
		assert.NotEmpty(t, e.Icon, e.Name)
	}
	for _, c := range models.Categories {
		assert.True(t, names[c.PreferenceName()], "catalog is missing %s", c.PreferenceName())
	}
}

func TestPreferences_Idempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	require.NoError(t, Preferences(db))
	require.NoError(t, Preferences(db))

	entries, err := LoadCatalog()
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Preference{}).Count(&count).Error)
	assert.Equal(t, int64(len(entries)), count)

	var fun models.Preference
	require.NoError(t, db.Where("name = ?", "Fun").First(&fun).Error)
	require.NotNil(t, fun.Color)
	assert.Equal(t, "#eab308", *fun.Color)
}

func TestPreferences_RefreshesCachedCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(prev) })

	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	user := testutil.CreateProfile(t, db)
	svc := service.NewPreferenceService(repository.NewPreferenceRepository(db), nil)

	require.Empty(t, svc.ListPreferences(ctx))
	require.True(t, mr.Exists(cache.PreferenceCatalogKey))

	require.NoError(t, Preferences(db))
	assert.False(t, mr.Exists(cache.PreferenceCatalogKey))

	entries, err := LoadCatalog()
	require.NoError(t, err)
	catalog := svc.ListPreferences(ctx)
	require.Len(t, catalog, len(entries))

	var music models.Preference
	require.NoError(t, db.Where("name = ?", "Music").First(&music).Error)
	ids, err := svc.ReplaceAll(ctx, user.ID, []string{music.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{music.ID}, ids)
}

func TestReplaceAllAcceptsRowsMissingFromCachedCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(prev) })

	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	user := testutil.CreateProfile(t, db)
	svc := service.NewPreferenceService(repository.NewPreferenceRepository(db), nil)

	require.Empty(t, svc.ListPreferences(ctx))
	// Inserted behind the cache's back.
	art := testutil.CreatePreference(t, db, "Art")

	ids, err := svc.ReplaceAll(ctx, user.ID, []string{art.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{art.ID}, ids)

	_, err = svc.ReplaceAll(ctx, user.ID, []string{"ghost"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}
