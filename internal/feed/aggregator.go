package feed

import (
	"context"
	"log/slog"

	"pulsevote/internal/models"
	"pulsevote/internal/observability"
)

// SurveySource is the read side of the survey store.
type SurveySource interface {
	ListPublished(ctx context.Context, viewerID string, preferenceIDs []string) ([]models.Survey, error)
	GetByID(ctx context.Context, id string) (*models.Survey, error)
	ListUserVotes(ctx context.Context, userID string, surveyIDs []string) ([]models.UserVote, error)
}

// MembershipChecker resolves group membership for private surveys.
type MembershipChecker interface {
	GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
}

// Aggregator loads surveys with their joins and the viewer's own state.
type Aggregator struct {
	surveys SurveySource
	members MembershipChecker
}

// NewAggregator creates a feed aggregator. members may be nil, in which case
// private group surveys are only reachable through their public link.
func NewAggregator(surveys SurveySource, members MembershipChecker) *Aggregator {
	return &Aggregator{surveys: surveys, members: members}
}

// FetchFeed returns the published public surveys and those of the viewer's
// groups, newest first, restricted to tagFilter when it is non-empty. Any store error is logged and yields an
// empty projection.
func (a *Aggregator) FetchFeed(ctx context.Context, viewerID string, tagFilter []string) *Projection {
	surveys, err := a.surveys.ListPublished(ctx, viewerID, tagFilter)
	if err != nil {
		a.fail(ctx, "load surveys", err)
		return NewProjection(viewerID, nil)
	}

	var votes []models.UserVote
	if viewerID != "" && len(surveys) > 0 {
		votes, err = a.surveys.ListUserVotes(ctx, viewerID, nil)
		if err != nil {
			a.fail(ctx, "load viewer votes", err)
			return NewProjection(viewerID, nil)
		}
	}

	observability.FeedFetchesTotal.WithLabelValues("success").Inc()
	return NewProjection(viewerID, Assemble(viewerID, surveys, votes))
}

func (a *Aggregator) fail(ctx context.Context, step string, err error) {
	observability.FeedFetchesTotal.WithLabelValues("error").Inc()
	observability.GlobalLogger.ErrorContext(ctx, "feed fetch failed",
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// FetchSurvey loads a single survey as a one-item projection. Unpublished
// surveys are reported as not found, as are group surveys the viewer may not
// see.
func (a *Aggregator) FetchSurvey(ctx context.Context, viewerID, surveyID string) (*Projection, error) {
	s, err := a.load(ctx, viewerID, surveyID)
	if err != nil {
		return nil, err
	}
	return NewProjection(viewerID, []*models.SurveyWithDetails{s}), nil
}

func (a *Aggregator) load(ctx context.Context, viewerID, surveyID string) (*models.SurveyWithDetails, error) {
	survey, err := a.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !survey.IsPublished {
		return nil, models.NewNotFoundError("Survey", surveyID)
	}
	if survey.GroupID != nil && !survey.IsPublicLink {
		if !a.isMember(ctx, *survey.GroupID, viewerID) {
			return nil, models.NewNotFoundError("Survey", surveyID)
		}
	}

	var votes []models.UserVote
	if viewerID != "" {
		votes, err = a.surveys.ListUserVotes(ctx, viewerID, []string{surveyID})
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return Assemble(viewerID, []models.Survey{*survey}, votes)[0], nil
}

func (a *Aggregator) isMember(ctx context.Context, groupID, viewerID string) bool {
	if viewerID == "" || a.members == nil {
		return false
	}
	m, err := a.members.GetMember(ctx, groupID, viewerID)
	return err == nil && m != nil
}

// Assemble joins surveys with the viewer's votes and derives the per-viewer
// fields. votes may span surveys outside the set; they are grouped by survey.
func Assemble(viewerID string, surveys []models.Survey, votes []models.UserVote) []*models.SurveyWithDetails {
	bySurvey := make(map[string][]string, len(votes))
	for _, v := range votes {
		if v.UserID != viewerID {
			continue
		}
		bySurvey[v.SurveyID] = append(bySurvey[v.SurveyID], v.OptionID)
	}

	out := make([]*models.SurveyWithDetails, 0, len(surveys))
	for _, s := range surveys {
		out = append(out, models.NewSurveyWithDetails(s, viewerID, bySurvey[s.ID]))
	}
	return out
}
