package service

import (
	"context"
	"strings"
	"testing"

	"pulsevote/internal/featureflags"
	"pulsevote/internal/models"
	"pulsevote/internal/notifications"
	"pulsevote/internal/repository"
	"pulsevote/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newGroupService(t *testing.T, flags string) (*GroupService, *gorm.DB, *recordingEvents) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	events := &recordingEvents{}
	svc := NewGroupService(
		repository.NewGroupRepository(db),
		repository.NewProfileRepository(db),
		repository.NewSurveyRepository(db),
		featureflags.NewManager(flags),
		events,
		"https://pulse.example/",
	)
	return svc, db, events
}

func TestGroupServiceCreateAndList(t *testing.T) {
	svc, db, _ := newGroupService(t, "group_surveys=on")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)

	group, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: " Family ", Type: "FAMILY"})
	require.NoError(t, err)
	assert.Equal(t, "Family", group.Name)
	assert.Equal(t, models.GroupTypeFamily, group.Type)

	groups, err := svc.ListGroups(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members, 1)
	assert.Equal(t, models.GroupRoleOwner, groups[0].Members[0].Role)

	stranger := testutil.CreateProfile(t, db)
	groups, err = svc.ListGroups(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupServiceCreateValidation(t *testing.T) {
	svc, db, _ := newGroupService(t, "")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)

	_, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "  "})
	assertValidationError(t, err)
	_, err = svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: strings.Repeat("x", 101)})
	assertValidationError(t, err)
	_, err = svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "Club", Type: "club"})
	assertValidationError(t, err)
	_, err = svc.CreateGroup(ctx, CreateGroupInput{Name: "Club"})
	assertUnauthorizedError(t, err)
}

func TestGroupServiceAddMemberByEmail(t *testing.T) {
	svc, db, events := newGroupService(t, "")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)
	invitee := testutil.CreateProfile(t, db)
	group, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "Work", Type: "company"})
	require.NoError(t, err)

	member, err := svc.AddMemberByEmail(ctx, owner.ID, group.ID, "  "+strings.ToUpper(invitee.Email)+" ")
	require.NoError(t, err)
	assert.Equal(t, invitee.ID, member.UserID)
	assert.Equal(t, models.GroupRoleMember, member.Role)
	assert.Contains(t, events.types(), notifications.EventGroupMemberAdded)

	_, err = svc.AddMemberByEmail(ctx, owner.ID, group.ID, invitee.Email)
	assertAppErrorCode(t, err, models.CodeConflict)
	assert.EqualError(t, err, "User is already a member")

	_, err = svc.AddMemberByEmail(ctx, owner.ID, group.ID, "nobody@example.com")
	assertNotFoundError(t, err)
	assert.EqualError(t, err, "User not found. They must have an account first.")

	// Plain members cannot invite.
	other := testutil.CreateProfile(t, db)
	_, err = svc.AddMemberByEmail(ctx, invitee.ID, group.ID, other.Email)
	assertForbiddenError(t, err)

	// Non-members are rejected before anything else.
	_, err = svc.AddMemberByEmail(ctx, other.ID, group.ID, invitee.Email)
	assertForbiddenError(t, err)

	_, err = svc.AddMemberByEmail(ctx, owner.ID, "missing-group", invitee.Email)
	assertNotFoundError(t, err)
}

func TestGroupServiceRemoveMember(t *testing.T) {
	svc, db, _ := newGroupService(t, "")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)
	a := testutil.CreateProfile(t, db)
	b := testutil.CreateProfile(t, db)
	group, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "Friends"})
	require.NoError(t, err)
	_, err = svc.AddMemberByEmail(ctx, owner.ID, group.ID, a.Email)
	require.NoError(t, err)
	_, err = svc.AddMemberByEmail(ctx, owner.ID, group.ID, b.Email)
	require.NoError(t, err)

	// A member cannot remove someone else.
	assertForbiddenError(t, svc.RemoveMember(ctx, a.ID, group.ID, b.ID))
	// Nobody can remove the owner.
	assertValidationError(t, svc.RemoveMember(ctx, owner.ID, group.ID, owner.ID))

	require.NoError(t, svc.RemoveMember(ctx, owner.ID, group.ID, b.ID))
	// Members may leave.
	require.NoError(t, svc.RemoveMember(ctx, a.ID, group.ID, a.ID))

	groups, err := svc.ListGroups(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 1)
}

func TestGroupServiceSurveys(t *testing.T) {
	svc, db, _ := newGroupService(t, "group_surveys=on")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)
	outsider := testutil.CreateProfile(t, db)
	group, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "Shop", Type: "company"})
	require.NoError(t, err)

	_, err = svc.CreateGroupSurvey(ctx, owner.ID, group.ID, CreateGroupSurveyInput{Title: "Dinner?", Options: []string{"Pizza"}})
	assertValidationError(t, err)

	survey, err := svc.CreateGroupSurvey(ctx, owner.ID, group.ID, CreateGroupSurveyInput{
		Title:        "Dinner?",
		Options:      []string{"Pizza", " ", "Sushi", "Tacos"},
		IsPublicLink: true,
	})
	require.NoError(t, err)
	assert.True(t, survey.IsPublished)
	require.NotNil(t, survey.GroupID)
	assert.Equal(t, group.ID, *survey.GroupID)

	_, err = svc.CreateGroupSurvey(ctx, outsider.ID, group.ID, CreateGroupSurveyInput{Title: "x", Options: []string{"a", "b"}})
	assertForbiddenError(t, err)

	list, err := svc.ListGroupSurveys(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Options, 3)
	assert.Empty(t, list[0].UserVotes)

	_, err = svc.ListGroupSurveys(ctx, outsider.ID, group.ID)
	assertForbiddenError(t, err)

	link, err := svc.ShareLink(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://pulse.example/survey/"+survey.ID, link)

	private, err := svc.CreateGroupSurvey(ctx, owner.ID, group.ID, CreateGroupSurveyInput{Title: "Private", Options: []string{"a", "b"}})
	require.NoError(t, err)
	_, err = svc.ShareLink(ctx, private.ID)
	assertForbiddenError(t, err)
}

func TestGroupServicePublicLinksNeedCompanyGroup(t *testing.T) {
	svc, db, _ := newGroupService(t, "")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)
	family, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "Home", Type: "family"})
	require.NoError(t, err)

	_, err = svc.CreateGroupSurvey(ctx, owner.ID, family.ID, CreateGroupSurveyInput{
		Title:        "Dinner?",
		Options:      []string{"Pizza", "Sushi"},
		IsPublicLink: true,
	})
	assertValidationError(t, err)

	// Rows written before the rule existed still get no link.
	legacy := testutil.CreateSurvey(t, db, owner.ID, testutil.SurveyOpts{GroupID: &family.ID})
	require.NoError(t, db.Model(&models.Survey{}).Where("id = ?", legacy.ID).Update("is_public_link", true).Error)
	_, err = svc.ShareLink(ctx, legacy.ID)
	assertForbiddenError(t, err)
}

func TestGroupServiceSurveysFlagOff(t *testing.T) {
	svc, db, _ := newGroupService(t, "group_surveys=off")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)
	group, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "Home"})
	require.NoError(t, err)

	_, err = svc.CreateGroupSurvey(ctx, owner.ID, group.ID, CreateGroupSurveyInput{Title: "Dinner?", Options: []string{"a", "b"}})
	assertForbiddenError(t, err)
}

func TestGroupServiceDeleteGroup(t *testing.T) {
	svc, db, _ := newGroupService(t, "group_surveys=on")
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db)
	member := testutil.CreateProfile(t, db)
	group, err := svc.CreateGroup(ctx, CreateGroupInput{UserID: owner.ID, Name: "Home"})
	require.NoError(t, err)
	_, err = svc.AddMemberByEmail(ctx, owner.ID, group.ID, member.Email)
	require.NoError(t, err)
	_, err = svc.CreateGroupSurvey(ctx, owner.ID, group.ID, CreateGroupSurveyInput{Title: "Q", Options: []string{"a", "b"}})
	require.NoError(t, err)

	assertForbiddenError(t, svc.DeleteGroup(ctx, member.ID, group.ID))
	require.NoError(t, svc.DeleteGroup(ctx, owner.ID, group.ID))

	var surveys int64
	require.NoError(t, db.Model(&models.Survey{}).Where("group_id = ?", group.ID).Count(&surveys).Error)
	assert.Zero(t, surveys)
	assertNotFoundError(t, svc.DeleteGroup(ctx, owner.ID, group.ID))
}
