package repository

import (
	"context"
	"errors"

	"pulsevote/internal/models"
	"pulsevote/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// SurveyRepository defines the interface for survey data operations
type SurveyRepository interface {
	ListPublished(ctx context.Context, viewerID string, preferenceIDs []string) ([]models.Survey, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Survey, error)
	GetByID(ctx context.Context, id string) (*models.Survey, error)
	CreateWithOptions(ctx context.Context, survey *models.Survey, options []string) error
	ListUserVotes(ctx context.Context, userID string, surveyIDs []string) ([]models.UserVote, error)
}

type surveyRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewSurveyRepository creates a new survey repository
func NewSurveyRepository(db *gorm.DB) SurveyRepository {
	return &surveyRepository{db: db, log: observability.NewRepoLogger("surveys")}
}

// withDetails preloads everything a feed card renders.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("survey_options.position ASC, survey_options.created_at ASC")
		}).
		Preload("Reactions").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC")
		}).
		Preload("Comments.User").
		Preload("Preference").
		Preload("Author")
}

// ListPublished returns published surveys, newest first: every public
// survey plus those of groups viewerID belongs to. Anonymous viewers get
// public surveys only. A non-empty preferenceIDs restricts the result to
// surveys tagged with one of them.
func (r *surveyRepository) ListPublished(ctx context.Context, viewerID string, preferenceIDs []string) ([]models.Survey, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "ListPublished", "surveys")
	defer span.End()
	defer observability.TrackQuery("select", "surveys")()

	query := withDetails(r.db.WithContext(ctx)).Where("is_published = ?", true)
	if viewerID == "" {
		query = query.Where("group_id IS NULL")
	} else {
		memberOf := r.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", viewerID)
		query = query.Where("group_id IS NULL OR group_id IN (?)", memberOf)
	}
	if ids := dedupe(preferenceIDs); len(ids) > 0 {
		span.SetAttributes(attribute.Int("feed.filter_count", len(ids)))
		query = query.Where("preference_id IN ?", ids)
	}

	var surveys []models.Survey
	if err := query.Order("created_at DESC").Find(&surveys).Error; err != nil {
		observability.Fail(span, err)
		return nil, err
	}
	return surveys, nil
}

// ListByGroup returns every survey of a group, newest first.
func (r *surveyRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Survey, error) {
	defer observability.TrackQuery("select", "surveys")()

	var surveys []models.Survey
	err := withDetails(r.db.WithContext(ctx)).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&surveys).Error
	return surveys, err
}

func (r *surveyRepository) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	var survey models.Survey
	if err := withDetails(r.db.WithContext(ctx)).First(&survey, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Survey", id)
		}
		return nil, err
	}
	return &survey, nil
}

// CreateWithOptions inserts the survey and its options atomically. Options
// are positioned in the given order.
func (r *surveyRepository) CreateWithOptions(ctx context.Context, survey *models.Survey, options []string) error {
	defer observability.TrackQuery("insert", "surveys")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		survey.Options = nil
		if err := tx.Omit("Options", "Reactions", "Comments", "Author", "Preference").Create(survey).Error; err != nil {
			return err
		}
		rows := make([]models.SurveyOption, 0, len(options))
		for i, text := range options {
			rows = append(rows, models.SurveyOption{SurveyID: survey.ID, OptionText: text, Position: i})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		survey.Options = rows
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"survey_id": survey.ID, "options": len(options)})
	return nil
}

// ListUserVotes returns the user's votes, optionally restricted to surveyIDs.
func (r *surveyRepository) ListUserVotes(ctx context.Context, userID string, surveyIDs []string) ([]models.UserVote, error) {
	if userID == "" {
		return nil, nil
	}
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if surveyIDs != nil {
		if len(surveyIDs) == 0 {
			return nil, nil
		}
		query = query.Where("survey_id IN ?", surveyIDs)
	}
	var votes []models.UserVote
	err := query.Order("created_at ASC").Find(&votes).Error
	return votes, err
}
