package repository

import (
	"context"
	"errors"
	"strings"

	"pulsevote/internal/cache"
	"pulsevote/internal/models"
	"pulsevote/internal/observability"

	"gorm.io/gorm"
)

// PreferenceRepository defines persistence for the topic catalog and user selections.
type PreferenceRepository interface {
	List(ctx context.Context) ([]models.Preference, error)
	Create(ctx context.Context, pref *models.Preference) error
	GetByID(ctx context.Context, id string) (*models.Preference, error)
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
	FindByName(ctx context.Context, name string) (*models.Preference, error)
	ListUserPreferenceIDs(ctx context.Context, userID string) ([]string, error)
	Toggle(ctx context.Context, userID, preferenceID string) (bool, error)
	ReplaceAll(ctx context.Context, userID string, preferenceIDs []string) error
}

type preferenceRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db, log: observability.NewRepoLogger("user_preferences")}
}

// List returns the catalog ordered by name, served from cache when possible.
func (r *preferenceRepository) List(ctx context.Context) ([]models.Preference, error) {
	prefs, err := cache.Remember(ctx, cache.PreferenceCatalogKey, cache.PreferenceCatalogTTL,
		func(ctx context.Context) ([]models.Preference, error) {
			var prefs []models.Preference
			err := r.db.WithContext(ctx).Order("name ASC").Find(&prefs).Error
			return prefs, err
		})
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = []models.Preference{}
	}
	return prefs, nil
}

func (r *preferenceRepository) Create(ctx context.Context, pref *models.Preference) error {
	if err := r.db.WithContext(ctx).Create(pref).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("A preference with this name already exists")
		}
		return err
	}
	cache.InvalidatePreferenceCatalog(ctx)
	return nil
}

func (r *preferenceRepository) GetByID(ctx context.Context, id string) (*models.Preference, error) {
	var pref models.Preference
	if err := r.db.WithContext(ctx).First(&pref, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Preference", id)
		}
		return nil, err
	}
	return &pref, nil
}

// MissingIDs returns the ids with no catalog row, in input order. It reads
// the table directly so a stale cached catalog cannot reject a real entry.
func (r *preferenceRepository) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	want := dedupe(ids)
	if len(want) == 0 {
		return nil, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.Preference{}).
		Where("id IN ?", want).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(found))
	for _, id := range found {
		seen[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// FindByName matches the catalog name ignoring case.
func (r *preferenceRepository) FindByName(ctx context.Context, name string) (*models.Preference, error) {
	var pref models.Preference
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Preference", name)
		}
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepository) ListUserPreferenceIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	if userID == "" {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.UserPreference{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("preference_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Toggle deletes the membership row if it exists and inserts it otherwise.
// It reports whether the preference is selected afterwards.
func (r *preferenceRepository) Toggle(ctx context.Context, userID, preferenceID string) (bool, error) {
	var selected bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND preference_id = ?", userID, preferenceID).
			Delete(&models.UserPreference{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			selected = false
			return nil
		}
		selected = true
		return tx.Create(&models.UserPreference{UserID: userID, PreferenceID: preferenceID}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "toggle")
		return false, err
	}
	return selected, nil
}

// ReplaceAll swaps the user's whole selection inside one transaction, so a
// failed insert never leaves the user with an empty set.
func (r *preferenceRepository) ReplaceAll(ctx context.Context, userID string, preferenceIDs []string) error {
	ids := dedupe(preferenceIDs)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserPreference{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		rows := make([]models.UserPreference, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, models.UserPreference{UserID: userID, PreferenceID: id})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "replace_all")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": userID, "count": len(ids)})
	return nil
}
