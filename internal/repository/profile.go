package repository

import (
	"context"
	"errors"

	"pulsevote/internal/cache"
	"pulsevote/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines persistence operations for user profiles and roles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	IsAdmin(ctx context.Context, userID string) (bool, error)
	GrantRole(ctx context.Context, userID string, role models.AppRole) error
	FirstAdmin(ctx context.Context) (*models.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Profile", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

// FindByEmail matches the email exactly after trimming, ignoring case.
func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", models.NormalizeEmail(email)).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Profile", email)
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return cache.Remember(ctx, cache.UserAdminKey(userID), cache.UserAdminTTL, func(ctx context.Context) (bool, error) {
		var count int64
		err := r.db.WithContext(ctx).
			Model(&models.UserRole{}).
			Where("user_id = ? AND role = ?", userID, models.AppRoleAdmin).
			Count(&count).Error
		return count > 0, err
	})
}

func (r *profileRepository) GrantRole(ctx context.Context, userID string, role models.AppRole) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
	if err == nil {
		cache.Invalidate(ctx, cache.UserAdminKey(userID))
	}
	return err
}

// FirstAdmin returns the earliest granted admin, the default author for
// generated surveys.
func (r *profileRepository) FirstAdmin(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = profiles.id").
		Where("user_roles.role = ?", models.AppRoleAdmin).
		Order("user_roles.created_at ASC").
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Admin", "any")
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}
