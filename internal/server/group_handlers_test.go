package server

import (
	"net/http"
	"testing"

	"pulsevote/internal/models"
	"pulsevote/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db)
	friend := testutil.CreateProfile(t, env.db)
	outsider := testutil.CreateProfile(t, env.db)

	var group models.Group
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/groups", owner.ID,
		map[string]string{"name": "Family", "type": "family"}, &group))
	base := "/api/groups/" + group.ID

	var errResp models.ErrorResponse
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, base+"/members", owner.ID,
		map[string]string{"email": "ghost@example.com"}, &errResp))
	assert.Equal(t, "User not found. They must have an account first.", errResp.Error)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, base+"/members", owner.ID,
		map[string]string{"email": friend.Email}, nil))
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, base+"/members", owner.ID,
		map[string]string{"email": friend.Email}, &errResp))
	assert.Equal(t, "User is already a member", errResp.Error)

	var survey models.Survey
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, base+"/surveys", friend.ID,
		map[string]any{"title": "Movie night?", "options": []string{"Yes", "No"}}, &survey))

	var surveys []models.SurveyWithDetails
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, base+"/surveys", owner.ID, nil, &surveys))
	require.Len(t, surveys, 1)
	assert.Equal(t, "Movie night?", surveys[0].Title)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, base+"/surveys", outsider.ID, nil, nil))

	// Group surveys reach members' feeds and stay away from everyone else.
	var feed struct {
		Surveys []models.SurveyWithDetails `json:"surveys"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/feed", outsider.ID, nil, &feed))
	assert.Empty(t, feed.Surveys)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/feed", owner.ID, nil, &feed))
	require.Len(t, feed.Surveys, 1)
	assert.Equal(t, survey.ID, feed.Surveys[0].ID)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/surveys/"+survey.ID, outsider.ID, nil, nil))
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/surveys/"+survey.ID, friend.ID, nil, nil))

	var groups []models.Group
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/groups", friend.ID, nil, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].SurveyCount)
	assert.Len(t, groups[0].Members, 2)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodDelete, base+"/members/"+owner.ID, owner.ID, nil, nil))
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, base, friend.ID, nil, nil))
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, base+"/members/"+friend.ID, owner.ID, nil, nil))
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, base, owner.ID, nil, nil))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/groups", owner.ID, nil, &groups))
	assert.Empty(t, groups)
}

func TestCreateGroupValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db)

	var errResp models.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/groups", owner.ID,
		map[string]string{"name": "", "type": "family"}, &errResp))
	assert.Equal(t, models.CodeValidation, errResp.Code)
}
