package service

import (
	"context"
	"log/slog"
	"strings"

	"pulsevote/internal/featureflags"
	"pulsevote/internal/models"
	"pulsevote/internal/notifications"
	"pulsevote/internal/observability"
	"pulsevote/internal/repository"
	"pulsevote/internal/suggest"
	"pulsevote/internal/validation"
)

// Generator produces survey drafts and illustrations. *suggest.Client
// satisfies it.
type Generator interface {
	GenerateSuggestions(ctx context.Context, region, topic string) ([]suggest.Draft, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// SurveyPublisher creates published surveys from admin input, generated
// drafts and the scheduled auto-publish batch.
type SurveyPublisher struct {
	surveys     repository.SurveyRepository
	preferences repository.PreferenceRepository
	profiles    repository.ProfileRepository
	generator   Generator
	images      *ImageService
	flags       *featureflags.Manager
	events      EventPublisher
}

type PublishSurveyInput struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Options              []string `json:"options"`
	PreferenceID         string   `json:"preference_id"`
	TargetCountry        string   `json:"target_country"`
	ImageURL             string   `json:"image_url"`
	AllowMultipleAnswers bool     `json:"allow_multiple_answers"`
}

// AutoPublishResult summarizes one auto-publish batch.
type AutoPublishResult struct {
	Success        bool     `json:"success"`
	PublishedCount int      `json:"publishedCount"`
	SurveyIDs      []string `json:"surveyIds"`
}

func NewSurveyPublisher(
	surveys repository.SurveyRepository,
	preferences repository.PreferenceRepository,
	profiles repository.ProfileRepository,
	generator Generator,
	images *ImageService,
	flags *featureflags.Manager,
	events EventPublisher,
) *SurveyPublisher {
	return &SurveyPublisher{
		surveys:     surveys,
		preferences: preferences,
		profiles:    profiles,
		generator:   generator,
		images:      images,
		flags:       flags,
		events:      eventsOrNoop(events),
	}
}

// PublishManual publishes an admin-authored survey.
func (s *SurveyPublisher) PublishManual(ctx context.Context, adminID string, in PublishSurveyInput) (*models.Survey, error) {
	return s.publish(ctx, adminID, in, validation.MaxOptions, "manual")
}

// PublishDraft publishes a generated draft under the preference matching its
// category.
func (s *SurveyPublisher) PublishDraft(ctx context.Context, adminID string, draft suggest.Draft, imageURL, targetCountry string) (*models.Survey, error) {
	in := PublishSurveyInput{
		Title:         draft.Title,
		Description:   draft.Description,
		Options:       draft.Options,
		TargetCountry: targetCountry,
		ImageURL:      imageURL,
	}
	in.PreferenceID = s.preferenceFor(ctx, draft.Category)
	return s.publish(ctx, adminID, in, validation.MaxDraftOptions, "draft")
}

// preferenceFor resolves a category to a catalog preference ID, or "" when
// the catalog has no matching entry.
func (s *SurveyPublisher) preferenceFor(ctx context.Context, category models.Category) string {
	name := category.PreferenceName()
	if name == "" {
		name = string(category)
	}
	if name == "" {
		return ""
	}
	pref, err := s.preferences.FindByName(ctx, name)
	if err != nil {
		if !repository.IsNotFound(err) {
			observability.GlobalLogger.WarnContext(ctx, "preference lookup failed",
				slog.String("category", string(category)),
				slog.String("error", err.Error()))
		}
		return ""
	}
	return pref.ID
}

func (s *SurveyPublisher) publish(ctx context.Context, authorID string, in PublishSurveyInput, maxOptions int, source string) (*models.Survey, error) {
	if authorID == "" {
		return nil, models.NewUnauthorizedError("Please sign in")
	}
	title, err := validation.SurveyTitle(in.Title)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	options, err := validation.SurveyOptions(in.Options, maxOptions)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	country, err := validation.TargetCountry(in.TargetCountry)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	survey := &models.Survey{
		AuthorID:             authorID,
		Title:                title,
		Description:          validation.Optional(in.Description),
		ImageURL:             validation.Optional(in.ImageURL),
		PreferenceID:         validation.Optional(in.PreferenceID),
		TargetCountry:        country,
		AllowMultipleAnswers: in.AllowMultipleAnswers,
		IsPublished:          true,
	}
	if survey.PreferenceID != nil {
		if _, err := s.preferences.GetByID(ctx, *survey.PreferenceID); err != nil {
			if repository.IsNotFound(err) {
				return nil, models.NewValidationError("Unknown preference")
			}
			return nil, asAppError(err)
		}
	}
	if err := s.surveys.CreateWithOptions(ctx, survey, options); err != nil {
		return nil, asAppError(err)
	}

	observability.SurveysPublishedTotal.WithLabelValues(source).Inc()
	s.events.Broadcast(ctx, notifications.EventSurveyPublished, map[string]any{
		"survey_id": survey.ID,
		"source":    source,
	})
	return survey, nil
}

// Suggest asks the generator for five drafts for region and category.
func (s *SurveyPublisher) Suggest(ctx context.Context, userID, region, category string) ([]suggest.Draft, error) {
	if !s.flags.Enabled(featureflags.AISuggestions, userID) {
		return nil, models.NewForbiddenError("AI suggestions are not enabled")
	}
	if s.generator == nil {
		return nil, suggest.ErrNotConfigured
	}
	topic := strings.TrimSpace(category)
	if topic != "" && !strings.EqualFold(topic, "all") {
		c, ok := models.ParseCategory(topic)
		if !ok {
			return nil, models.NewValidationError("Unknown category")
		}
		topic = string(c)
	} else {
		topic = ""
	}
	return s.generator.GenerateSuggestions(ctx, region, topic)
}

// Illustrate generates an image for prompt and returns its stored URL.
func (s *SurveyPublisher) Illustrate(ctx context.Context, userID, prompt string) (string, error) {
	if !s.flags.Enabled(featureflags.AISuggestions, userID) {
		return "", models.NewForbiddenError("AI suggestions are not enabled")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", models.NewValidationError("Prompt is required")
	}
	if s.generator == nil {
		return "", suggest.ErrNotConfigured
	}
	ref, err := s.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	if s.images == nil {
		return ref, nil
	}
	return s.images.StoreGenerated(ctx, userID, ref)
}

// AutoPublish generates a batch of drafts and publishes each under the first
// admin account. A draft that fails to publish is logged and skipped.
func (s *SurveyPublisher) AutoPublish(ctx context.Context, region string) (*AutoPublishResult, error) {
	if !s.flags.Global(featureflags.AutoPublish) {
		return nil, models.NewForbiddenError("Auto-publish is not enabled")
	}
	if s.generator == nil {
		return nil, suggest.ErrNotConfigured
	}

	admin, err := s.profiles.FirstAdmin(ctx)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewValidationError("No admin user found to publish surveys")
		}
		return nil, asAppError(err)
	}

	drafts, err := s.generator.GenerateSuggestions(ctx, region, "")
	if err != nil {
		return nil, err
	}

	result := &AutoPublishResult{SurveyIDs: []string{}}
	for _, d := range drafts {
		survey, err := s.PublishDraft(ctx, admin.ID, d, "", "")
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "auto-publish skipped draft",
				slog.String("title", d.Title),
				slog.String("error", err.Error()))
			continue
		}
		result.SurveyIDs = append(result.SurveyIDs, survey.ID)
	}
	result.PublishedCount = len(result.SurveyIDs)
	result.Success = true

	observability.GlobalLogger.InfoContext(ctx, "auto-publish finished",
		slog.String("author_id", admin.ID),
		slog.Int("published", result.PublishedCount))
	return result, nil
}
