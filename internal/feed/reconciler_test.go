package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pulsevote/internal/models"
	"pulsevote/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	castVoteFn       func(ctx context.Context, vote *models.UserVote) error
	upsertReactionFn func(ctx context.Context, userID, surveyID string, kind models.ReactionKind) (*models.Reaction, error)
	deleteReactionFn func(ctx context.Context, userID, surveyID string) error
	createCommentFn  func(ctx context.Context, comment *models.Comment) error

	calls int
}

func (s *stubStore) CastVote(ctx context.Context, vote *models.UserVote) error {
	s.calls++
	if s.castVoteFn != nil {
		return s.castVoteFn(ctx, vote)
	}
	return nil
}

func (s *stubStore) UpsertReaction(ctx context.Context, userID, surveyID string, kind models.ReactionKind) (*models.Reaction, error) {
	s.calls++
	if s.upsertReactionFn != nil {
		return s.upsertReactionFn(ctx, userID, surveyID, kind)
	}
	return &models.Reaction{ID: "r-" + userID, UserID: userID, SurveyID: surveyID, Reaction: kind}, nil
}

func (s *stubStore) DeleteReaction(ctx context.Context, userID, surveyID string) error {
	s.calls++
	if s.deleteReactionFn != nil {
		return s.deleteReactionFn(ctx, userID, surveyID)
	}
	return nil
}

func (s *stubStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.calls++
	if s.createCommentFn != nil {
		return s.createCommentFn(ctx, comment)
	}
	comment.ID = "c-new"
	return nil
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Broadcast(_ context.Context, eventType string, _ map[string]any) {
	r.events = append(r.events, eventType)
}

func surveyFixture(multi bool) *models.SurveyWithDetails {
	return models.NewSurveyWithDetails(models.Survey{
		ID:                   "s1",
		Title:                "Pineapple on pizza?",
		IsPublished:          true,
		AllowMultipleAnswers: multi,
		Options: []models.SurveyOption{
			{ID: "a", SurveyID: "s1", OptionText: "Yes", VoteCount: 3},
			{ID: "b", SurveyID: "s1", OptionText: "No", VoteCount: 1},
		},
	}, "viewer", nil)
}

func counts(t *testing.T, p *Projection) []int {
	t.Helper()
	s, ok := p.Get("s1")
	require.True(t, ok)
	out := make([]int, 0, len(s.Options))
	for _, o := range s.Options {
		out = append(out, o.VoteCount)
	}
	return out
}

func newTestReconciler(store Store) (*Reconciler, *NoticeRecorder, *recordingSink) {
	rec := &NoticeRecorder{}
	sink := &recordingSink{}
	return NewReconciler(store, nil, rec, sink), rec, sink
}

func TestVote_SingleAnswerScenario(t *testing.T) {
	store := &stubStore{}
	r, rec, sink := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})
	ctx := context.Background()

	require.NoError(t, r.Vote(ctx, p, "s1", "a"))
	assert.Equal(t, NoticeVoteRecorded, rec.Message())
	assert.Equal(t, []int{4, 1}, counts(t, p))
	s, _ := p.Get("s1")
	assert.Equal(t, []string{"a"}, s.UserVotes)

	err := r.Vote(ctx, p, "s1", "b")
	require.Error(t, err)
	assert.Equal(t, NoticeSingleVote, rec.Message())
	assert.Equal(t, []int{4, 1}, counts(t, p))
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, []string{"vote_recorded"}, sink.events)
}

func TestVote_SameOptionIsIdempotentRejection(t *testing.T) {
	store := &stubStore{}
	r, rec, _ := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(true)})
	ctx := context.Background()

	require.NoError(t, r.Vote(ctx, p, "s1", "a"))
	err := r.Vote(ctx, p, "s1", "a")
	assert.Equal(t, 409, models.StatusFor(err))
	assert.Equal(t, NoticeAlreadyVoted, rec.Message())
	assert.Equal(t, []int{4, 1}, counts(t, p))

	require.NoError(t, r.Vote(ctx, p, "s1", "b"))
	assert.Equal(t, []int{4, 2}, counts(t, p))
	s, _ := p.Get("s1")
	assert.Equal(t, []string{"a", "b"}, s.UserVotes)
	assert.Equal(t, 2, store.calls)
}

func TestVote_RequiresSignIn(t *testing.T) {
	store := &stubStore{}
	r, rec, _ := newTestReconciler(store)
	p := NewProjection("", []*models.SurveyWithDetails{surveyFixture(false)})

	err := r.Vote(context.Background(), p, "s1", "a")
	assert.Equal(t, 401, models.StatusFor(err))
	assert.Equal(t, NoticeSignIn, rec.Message())
	assert.Zero(t, store.calls)
}

func TestVote_StoreFailureLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		status   int
	}{
		{"backstop single answer", repository.ErrAlreadyVoted, 409},
		{"backstop duplicate", repository.ErrDuplicateVote, 409},
		{"transport", errors.New("connection reset"), 500},
		{"survey deleted meanwhile", models.NewNotFoundError("Survey", "s1"), 404},
		{"wrapped app error", fmt.Errorf("cast vote: %w", models.NewForbiddenError("closed")), 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{castVoteFn: func(context.Context, *models.UserVote) error { return tt.storeErr }}
			r, rec, sink := newTestReconciler(store)
			p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})

			err := r.Vote(context.Background(), p, "s1", "a")
			assert.Equal(t, tt.status, models.StatusFor(err))
			assert.Equal(t, NoticeVoteFailed, rec.Message())
			assert.Equal(t, []int{3, 1}, counts(t, p))
			s, _ := p.Get("s1")
			assert.Empty(t, s.UserVotes)
			assert.Empty(t, sink.events)
		})
	}
}

func TestVote_UnknownOptionSkipsStore(t *testing.T) {
	store := &stubStore{}
	r, _, _ := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})

	err := r.Vote(context.Background(), p, "s1", "zzz")
	assert.Equal(t, 400, models.StatusFor(err))
	assert.Zero(t, store.calls)
}

func TestReact_SameKindTwiceClears(t *testing.T) {
	store := &stubStore{}
	r, rec, _ := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})
	ctx := context.Background()

	require.NoError(t, r.React(ctx, p, "s1", models.ReactionLike))
	assert.Equal(t, NoticeReactionUpdated, rec.Message())
	s, _ := p.Get("s1")
	require.NotNil(t, s.UserReaction)
	assert.Equal(t, models.ReactionLike, *s.UserReaction)

	require.NoError(t, r.React(ctx, p, "s1", models.ReactionLike))
	assert.Equal(t, NoticeReactionRemoved, rec.Message())
	s, _ = p.Get("s1")
	assert.Nil(t, s.UserReaction)
	assert.Empty(t, s.Reactions)
}

func TestReact_SwitchKindReplacesEntry(t *testing.T) {
	store := &stubStore{}
	r, _, _ := newTestReconciler(store)
	base := surveyFixture(false)
	base.Reactions = []models.Reaction{{UserID: "other", SurveyID: "s1", Reaction: models.ReactionSad}}
	p := NewProjection("viewer", []*models.SurveyWithDetails{base})
	ctx := context.Background()

	require.NoError(t, r.React(ctx, p, "s1", models.ReactionLike))
	require.NoError(t, r.React(ctx, p, "s1", models.ReactionLaugh))

	s, _ := p.Get("s1")
	mine := 0
	for _, rx := range s.Reactions {
		if rx.UserID == "viewer" {
			mine++
			assert.Equal(t, models.ReactionLaugh, rx.Reaction)
		}
	}
	assert.Equal(t, 1, mine)
	assert.Len(t, s.Reactions, 2)
	assert.Equal(t, models.ReactionLaugh, *s.UserReaction)
}

func TestReact_FailureAndValidation(t *testing.T) {
	store := &stubStore{upsertReactionFn: func(context.Context, string, string, models.ReactionKind) (*models.Reaction, error) {
		return nil, errors.New("down")
	}}
	r, rec, _ := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})
	ctx := context.Background()

	require.Error(t, r.React(ctx, p, "s1", models.ReactionDislike))
	assert.Equal(t, NoticeReactionFailed, rec.Message())
	s, _ := p.Get("s1")
	assert.Nil(t, s.UserReaction)

	err := r.React(ctx, p, "s1", models.ReactionKind("love"))
	assert.Equal(t, 400, models.StatusFor(err))
	assert.Equal(t, 1, store.calls)
}

func TestComment_AppendsInOrder(t *testing.T) {
	n := 0
	store := &stubStore{createCommentFn: func(_ context.Context, c *models.Comment) error {
		n++
		c.ID = "c" + strings.Repeat("x", n)
		return nil
	}}
	r, rec, _ := newTestReconciler(store)
	base := surveyFixture(false)
	base.Comments = []models.Comment{{ID: "old", Content: "first"}}
	p := NewProjection("viewer", []*models.SurveyWithDetails{base})
	ctx := context.Background()

	require.NoError(t, r.Comment(ctx, p, "s1", "  second  "))
	assert.Equal(t, NoticeCommentAdded, rec.Message())
	s, _ := p.Get("s1")
	require.Len(t, s.Comments, 2)
	assert.Equal(t, "old", s.Comments[0].ID)
	assert.Equal(t, "second", s.Comments[1].Content)
}

func TestComment_EmptyIsNoop(t *testing.T) {
	store := &stubStore{}
	r, rec, _ := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})

	err := r.Comment(context.Background(), p, "s1", "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyComment)
	assert.Nil(t, rec.Last)
	assert.Zero(t, store.calls)
}

func TestComment_FailureAndLength(t *testing.T) {
	store := &stubStore{createCommentFn: func(context.Context, *models.Comment) error { return errors.New("down") }}
	r, rec, _ := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})
	ctx := context.Background()

	require.Error(t, r.Comment(ctx, p, "s1", "hello"))
	assert.Equal(t, NoticeCommentFailed, rec.Message())
	s, _ := p.Get("s1")
	assert.Empty(t, s.Comments)

	err := r.Comment(ctx, p, "s1", strings.Repeat("é", MaxCommentLength+1))
	assert.Equal(t, 400, models.StatusFor(err))
	assert.Equal(t, 1, store.calls)
}

func TestStoreNotFoundKeepsStatus(t *testing.T) {
	gone := models.NewNotFoundError("Survey", "s1")
	store := &stubStore{
		upsertReactionFn: func(context.Context, string, string, models.ReactionKind) (*models.Reaction, error) {
			return nil, gone
		},
		createCommentFn: func(context.Context, *models.Comment) error { return gone },
	}
	r, _, _ := newTestReconciler(store)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})
	ctx := context.Background()

	err := r.React(ctx, p, "s1", models.ReactionLike)
	assert.Equal(t, 404, models.StatusFor(err))
	err = r.Comment(ctx, p, "s1", "hello")
	assert.Equal(t, 404, models.StatusFor(err))
	assert.True(t, repository.IsNotFound(err))
}
