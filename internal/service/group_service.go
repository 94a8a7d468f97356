package service

import (
	"context"
	"errors"
	"strings"

	"pulsevote/internal/feed"
	"pulsevote/internal/featureflags"
	"pulsevote/internal/models"
	"pulsevote/internal/notifications"
	"pulsevote/internal/observability"
	"pulsevote/internal/repository"
	"pulsevote/internal/validation"
)

type GroupService struct {
	groups        repository.GroupRepository
	profiles      repository.ProfileRepository
	surveys       repository.SurveyRepository
	flags         *featureflags.Manager
	events        EventPublisher
	publicBaseURL string
}

type CreateGroupInput struct {
	UserID      string
	Name        string
	Description string
	Type        string
}

type CreateGroupSurveyInput struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Options              []string `json:"options"`
	AllowMultipleAnswers bool     `json:"allow_multiple_answers"`
	IsPublicLink         bool     `json:"is_public_link"`
}

func NewGroupService(
	groups repository.GroupRepository,
	profiles repository.ProfileRepository,
	surveys repository.SurveyRepository,
	flags *featureflags.Manager,
	events EventPublisher,
	publicBaseURL string,
) *GroupService {
	return &GroupService{
		groups:        groups,
		profiles:      profiles,
		surveys:       surveys,
		flags:         flags,
		events:        eventsOrNoop(events),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Please sign in")
	}
	name, err := validation.GroupName(in.Name)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	groupType := models.GroupType(strings.ToLower(strings.TrimSpace(in.Type)))
	if groupType == "" {
		groupType = models.GroupTypeFamily
	}
	if !groupType.Valid() {
		return nil, models.NewValidationError("Group type must be family or company")
	}

	group := &models.Group{
		Name:        name,
		Description: validation.Optional(in.Description),
		Type:        groupType,
		OwnerID:     in.UserID,
	}
	if err := s.groups.CreateWithOwner(ctx, group); err != nil {
		return nil, asAppError(err)
	}
	return group, nil
}

func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]models.Group, error) {
	groups, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, asAppError(err)
	}
	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// membership returns the requester's role, or Forbidden when they are not a
// member. A missing group is reported as not found.
func (s *GroupService) membership(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	if userID == "" {
		return nil, models.NewUnauthorizedError("Please sign in")
	}
	m, err := s.groups.GetMember(ctx, groupID, userID)
	if err == nil {
		return m, nil
	}
	if !repository.IsNotFound(err) {
		return nil, asAppError(err)
	}
	if _, gErr := s.groups.GetByID(ctx, groupID); gErr != nil {
		return nil, asAppError(gErr)
	}
	return nil, models.NewForbiddenError("You are not a member of this group")
}

// AddMemberByEmail adds an existing account to the group as a member.
func (s *GroupService) AddMemberByEmail(ctx context.Context, requesterID, groupID, email string) (*models.GroupMember, error) {
	requester, err := s.membership(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.Role.CanManageMembers() {
		return nil, models.NewForbiddenError("Only group owners and admins can add members")
	}
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: "User not found. They must have an account first."}
		}
		return nil, asAppError(err)
	}

	member := &models.GroupMember{GroupID: groupID, UserID: profile.ID, Role: models.GroupRoleMember}
	if err := s.groups.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrAlreadyMember) {
			return nil, models.NewConflictError("User is already a member")
		}
		return nil, asAppError(err)
	}
	member.User = profile
	s.events.NotifyUser(ctx, profile.ID, notifications.EventGroupMemberAdded, map[string]any{"group_id": groupID})
	return member, nil
}

// RemoveMember removes userID from the group. Owners and admins may remove
// others; any non-owner may leave. The owner is never removed.
func (s *GroupService) RemoveMember(ctx context.Context, requesterID, groupID, userID string) error {
	requester, err := s.membership(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	if requesterID != userID && !requester.Role.CanManageMembers() {
		return models.NewForbiddenError("Only group owners and admins can remove members")
	}
	target, err := s.groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return asAppError(err)
	}
	if target.Role == models.GroupRoleOwner {
		return models.NewValidationError("The group owner cannot be removed")
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return asAppError(err)
	}
	s.events.NotifyUser(ctx, userID, notifications.EventGroupMemberRemoved, map[string]any{"group_id": groupID})
	return nil
}

func (s *GroupService) DeleteGroup(ctx context.Context, requesterID, groupID string) error {
	requester, err := s.membership(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	if requester.Role != models.GroupRoleOwner {
		return models.NewForbiddenError("Only the group owner can delete the group")
	}
	return asAppError(s.groups.Delete(ctx, groupID))
}

// ListGroupSurveys returns the group's surveys, newest first, with the
// requester's votes and reaction.
func (s *GroupService) ListGroupSurveys(ctx context.Context, requesterID, groupID string) ([]*models.SurveyWithDetails, error) {
	if _, err := s.membership(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	surveys, err := s.surveys.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, asAppError(err)
	}
	ids := make([]string, 0, len(surveys))
	for _, sv := range surveys {
		ids = append(ids, sv.ID)
	}
	votes, err := s.surveys.ListUserVotes(ctx, requesterID, ids)
	if err != nil {
		return nil, asAppError(err)
	}
	return feed.Assemble(requesterID, surveys, votes), nil
}

func (s *GroupService) CreateGroupSurvey(ctx context.Context, requesterID, groupID string, in CreateGroupSurveyInput) (*models.Survey, error) {
	if _, err := s.membership(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	if !s.flags.Enabled(featureflags.GroupSurveys, requesterID) {
		return nil, models.NewForbiddenError("Group surveys are not enabled")
	}
	title, err := validation.SurveyTitle(in.Title)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	options, err := validation.SurveyOptions(in.Options, validation.MaxOptions)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.IsPublicLink {
		group, err := s.groups.GetByID(ctx, groupID)
		if err != nil {
			return nil, asAppError(err)
		}
		if group.Type != models.GroupTypeCompany {
			return nil, models.NewValidationError(errCompanyOnlyLinks)
		}
	}

	gid := groupID
	survey := &models.Survey{
		AuthorID:             requesterID,
		Title:                title,
		Description:          validation.Optional(in.Description),
		GroupID:              &gid,
		AllowMultipleAnswers: in.AllowMultipleAnswers,
		IsPublicLink:         in.IsPublicLink,
		IsPublished:          true,
	}
	if err := s.surveys.CreateWithOptions(ctx, survey, options); err != nil {
		return nil, asAppError(err)
	}
	observability.SurveysPublishedTotal.WithLabelValues("group").Inc()
	return survey, nil
}

const errCompanyOnlyLinks = "Public links are only available for company groups"

// ShareLink returns the public URL of a survey that allows link sharing.
// Inside groups only company groups hand out links.
func (s *GroupService) ShareLink(ctx context.Context, surveyID string) (string, error) {
	survey, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return "", asAppError(err)
	}
	if !survey.IsPublicLink {
		return "", models.NewForbiddenError("This survey is not shared publicly")
	}
	if survey.GroupID != nil {
		group, err := s.groups.GetByID(ctx, *survey.GroupID)
		if err != nil {
			return "", asAppError(err)
		}
		if group.Type != models.GroupTypeCompany {
			return "", models.NewForbiddenError(errCompanyOnlyLinks)
		}
	}
	return s.publicBaseURL + "/survey/" + survey.ID, nil
}
