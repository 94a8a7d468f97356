package feed

import (
	"sync"
	"testing"

	"pulsevote/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjection_SnapshotsAreIsolated(t *testing.T) {
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false)})

	snap, ok := p.Get("s1")
	require.True(t, ok)
	snap.Options[0].VoteCount = 99
	snap.UserVotes = append(snap.UserVotes, "x")

	again, _ := p.Get("s1")
	assert.Equal(t, 3, again.Options[0].VoteCount)
	assert.Empty(t, again.UserVotes)
}

func TestProjection_ReplaceAndRemove(t *testing.T) {
	second := models.NewSurveyWithDetails(models.Survey{ID: "s2"}, "viewer", nil)
	p := NewProjection("viewer", []*models.SurveyWithDetails{surveyFixture(false), second, nil})
	require.Equal(t, 2, p.Len())

	updated := surveyFixture(false)
	updated.Title = "Changed"
	p.replace(updated)
	s, _ := p.Get("s1")
	assert.Equal(t, "Changed", s.Title)

	p.remove("s1")
	assert.Equal(t, 1, p.Len())
	_, ok := p.Get("s1")
	assert.False(t, ok)
	_, ok = p.Get("s2")
	assert.True(t, ok)
}

func TestProjection_ConcurrentVotesCountExactly(t *testing.T) {
	s := surveyFixture(true)
	p := NewProjection("viewer", []*models.SurveyWithDetails{s})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.applyVote("s1", "b")
		}()
	}
	wg.Wait()

	got, _ := p.Get("s1")
	assert.Equal(t, 51, got.Options[1].VoteCount)
}
