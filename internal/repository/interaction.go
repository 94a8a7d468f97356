package repository

import (
	"context"
	"errors"
	"time"

	"pulsevote/internal/models"
	"pulsevote/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionRepository persists the per-user writes against a survey:
// votes, reactions and comments.
type InteractionRepository interface {
	CastVote(ctx context.Context, vote *models.UserVote) error
	UpsertReaction(ctx context.Context, userID, surveyID string, kind models.ReactionKind) (*models.Reaction, error)
	DeleteReaction(ctx context.Context, userID, surveyID string) error
	CreateComment(ctx context.Context, comment *models.Comment) error
}

type interactionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db, log: observability.NewRepoLogger("user_votes")}
}

// CastVote records a vote and bumps the option tally in one transaction.
// The survey row is locked so concurrent single-answer votes serialize on
// the "already voted" check.
func (r *interactionRepository) CastVote(ctx context.Context, vote *models.UserVote) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "CastVote", "user_votes")
	defer span.End()
	defer observability.TrackQuery("insert", "user_votes")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var survey models.Survey
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "allow_multiple_answers").
			First(&survey, "id = ?", vote.SurveyID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Survey", vote.SurveyID)
			}
			return err
		}

		var optionCount int64
		if err := tx.Model(&models.SurveyOption{}).
			Where("id = ? AND survey_id = ?", vote.OptionID, vote.SurveyID).
			Count(&optionCount).Error; err != nil {
			return err
		}
		if optionCount == 0 {
			return ErrOptionMismatch
		}

		if !survey.AllowMultipleAnswers {
			var existing int64
			if err := tx.Model(&models.UserVote{}).
				Where("user_id = ? AND survey_id = ?", vote.UserID, vote.SurveyID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return ErrAlreadyVoted
			}
		}

		if err := tx.Create(vote).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateVote
			}
			return err
		}

		return tx.Model(&models.SurveyOption{}).
			Where("id = ?", vote.OptionID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1)).Error
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyVoted) && !errors.Is(err, ErrDuplicateVote) {
			observability.Fail(span, err)
			r.log.LogError(ctx, err, "cast_vote")
		}
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"survey_id": vote.SurveyID, "option_id": vote.OptionID})
	return nil
}

// UpsertReaction sets the user's single reaction slot on a survey and
// returns the stored row.
func (r *interactionRepository) UpsertReaction(ctx context.Context, userID, surveyID string, kind models.ReactionKind) (*models.Reaction, error) {
	defer observability.TrackQuery("upsert", "reactions")()

	var stored models.Reaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Reaction{UserID: userID, SurveyID: surveyID, Reaction: kind}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "survey_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"reaction":   kind,
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND survey_id = ?", userID, surveyID).First(&stored).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "upsert_reaction")
		return nil, err
	}
	return &stored, nil
}

func (r *interactionRepository) DeleteReaction(ctx context.Context, userID, surveyID string) error {
	defer observability.TrackQuery("delete", "reactions")()

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND survey_id = ?", userID, surveyID).
		Delete(&models.Reaction{}).Error
	if err != nil {
		r.log.LogError(ctx, err, "delete_reaction")
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"survey_id": surveyID})
	return nil
}

// CreateComment inserts the comment and loads its author for display.
func (r *interactionRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("insert", "comments")()

	db := r.db.WithContext(ctx)
	if err := db.Omit("User").Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create_comment")
		return err
	}
	var author models.Profile
	if err := db.First(&author, "id = ?", comment.UserID).Error; err == nil {
		comment.User = &author
	}
	return nil
}
