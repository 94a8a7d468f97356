package service

import (
	"context"
	"log/slog"

	"pulsevote/internal/cache"
	"pulsevote/internal/models"
	"pulsevote/internal/notifications"
	"pulsevote/internal/observability"
	"pulsevote/internal/repository"
	"pulsevote/internal/validation"
)

type PreferenceService struct {
	repo   repository.PreferenceRepository
	events EventPublisher
}

type CreatePreferenceInput struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func NewPreferenceService(repo repository.PreferenceRepository, events EventPublisher) *PreferenceService {
	return &PreferenceService{repo: repo, events: eventsOrNoop(events)}
}

// ListPreferences returns the catalog sorted by name. A store failure is
// logged and surfaced as an empty list.
func (s *PreferenceService) ListPreferences(ctx context.Context) []models.Preference {
	prefs, err := s.repo.List(ctx)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to list preferences", slog.String("error", err.Error()))
		return []models.Preference{}
	}
	return prefs
}

// ListUserPreferences returns the user's selected preference IDs. Anonymous
// and new users get an empty set.
func (s *PreferenceService) ListUserPreferences(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return []string{}, nil
	}
	ids, err := cache.Remember(ctx, cache.UserPreferencesKey(userID), cache.UserPreferencesTTL,
		func(ctx context.Context) ([]string, error) {
			return s.repo.ListUserPreferenceIDs(ctx, userID)
		})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Toggle flips one preference and returns the selection as stored after the
// write.
func (s *PreferenceService) Toggle(ctx context.Context, userID, preferenceID string) ([]string, error) {
	if userID == "" {
		return nil, models.NewUnauthorizedError("Please sign in")
	}
	if _, err := s.repo.GetByID(ctx, preferenceID); err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Preference", preferenceID)
		}
		return nil, models.NewInternalError(err)
	}
	if _, err := s.repo.Toggle(ctx, userID, preferenceID); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.afterWrite(ctx, userID)
}

// ReplaceAll swaps the user's selection for selectedIDs atomically. Unknown
// IDs are rejected before anything is written.
func (s *PreferenceService) ReplaceAll(ctx context.Context, userID string, selectedIDs []string) ([]string, error) {
	if userID == "" {
		return nil, models.NewUnauthorizedError("Please sign in")
	}
	missing, err := s.repo.MissingIDs(ctx, selectedIDs)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(missing) > 0 {
		return nil, models.NewValidationError("Unknown preference: " + missing[0])
	}

	if err := s.repo.ReplaceAll(ctx, userID, selectedIDs); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.afterWrite(ctx, userID)
}

func (s *PreferenceService) afterWrite(ctx context.Context, userID string) ([]string, error) {
	cache.InvalidateUserPreferences(ctx, userID)
	ids, err := s.repo.ListUserPreferenceIDs(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.events.NotifyUser(ctx, userID, notifications.EventPreferencesSaved, map[string]any{"preference_ids": ids})
	return ids, nil
}

// CreatePreference adds a catalog entry.
func (s *PreferenceService) CreatePreference(ctx context.Context, in CreatePreferenceInput) (*models.Preference, error) {
	name, err := validation.PreferenceName(in.Name)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.Color(in.Color); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	pref := &models.Preference{
		Name:  name,
		Icon:  validation.Optional(in.Icon),
		Color: validation.Optional(in.Color),
	}
	if err := s.repo.Create(ctx, pref); err != nil {
		return nil, asAppError(err)
	}
	return pref, nil
}
