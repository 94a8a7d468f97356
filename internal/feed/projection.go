// Package feed assembles per-viewer survey projections and reconciles
// viewer mutations against the store.
//
// A Projection mirrors store state for one viewer. It is never the source of
// truth: it only changes after the store confirms a write, and Refresh
// replaces a survey wholesale with what the store currently holds. Writes by
// other viewers stay invisible until the next fetch or refresh.
package feed

import (
	"sync"

	"pulsevote/internal/models"
)

// Projection is an ordered, viewer-scoped set of surveys.
type Projection struct {
	mu       sync.RWMutex
	viewerID string
	surveys  []*models.SurveyWithDetails
	index    map[string]int
}

// NewProjection builds a projection for viewerID. An empty viewerID is an
// anonymous viewer.
func NewProjection(viewerID string, surveys []*models.SurveyWithDetails) *Projection {
	p := &Projection{viewerID: viewerID}
	p.reset(surveys)
	return p
}

func (p *Projection) reset(surveys []*models.SurveyWithDetails) {
	p.surveys = make([]*models.SurveyWithDetails, 0, len(surveys))
	p.index = make(map[string]int, len(surveys))
	for _, s := range surveys {
		if s == nil {
			continue
		}
		s.Normalize()
		p.index[s.ID] = len(p.surveys)
		p.surveys = append(p.surveys, s)
	}
}

// ViewerID returns the viewer the projection was built for.
func (p *Projection) ViewerID() string {
	return p.viewerID
}

// Len returns the number of surveys.
func (p *Projection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.surveys)
}

// Surveys returns a deep copy of the surveys in feed order.
func (p *Projection) Surveys() []models.SurveyWithDetails {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.SurveyWithDetails, 0, len(p.surveys))
	for _, s := range p.surveys {
		out = append(out, clone(s))
	}
	return out
}

// Get returns a deep copy of one survey.
func (p *Projection) Get(surveyID string) (models.SurveyWithDetails, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.lookup(surveyID)
	if !ok {
		return models.SurveyWithDetails{}, false
	}
	return clone(s), true
}

func (p *Projection) lookup(surveyID string) (*models.SurveyWithDetails, bool) {
	i, ok := p.index[surveyID]
	if !ok {
		return nil, false
	}
	return p.surveys[i], true
}

// applyVote bumps the option tally by one and records the viewer's vote.
func (p *Projection) applyVote(surveyID, optionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.lookup(surveyID)
	if !ok {
		return false
	}
	opt, ok := s.Option(optionID)
	if !ok {
		return false
	}
	opt.VoteCount++
	s.UserVotes = append(s.UserVotes, optionID)
	return true
}

// setReaction replaces the viewer's reaction entry, or appends one.
func (p *Projection) setReaction(surveyID string, r models.Reaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.lookup(surveyID)
	if !ok {
		return
	}
	replaced := false
	for i := range s.Reactions {
		if s.Reactions[i].UserID == r.UserID {
			s.Reactions[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		s.Reactions = append(s.Reactions, r)
	}
	kind := r.Reaction
	s.UserReaction = &kind
}

// clearReaction drops the viewer's reaction entry.
func (p *Projection) clearReaction(surveyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.lookup(surveyID)
	if !ok {
		return
	}
	kept := s.Reactions[:0]
	for _, r := range s.Reactions {
		if r.UserID != p.viewerID {
			kept = append(kept, r)
		}
	}
	s.Reactions = kept
	s.UserReaction = nil
}

func (p *Projection) appendComment(surveyID string, c models.Comment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.lookup(surveyID); ok {
		s.Comments = append(s.Comments, c)
	}
}

// replace swaps in a freshly loaded survey, appending it when unknown.
func (p *Projection) replace(s *models.SurveyWithDetails) {
	s.Normalize()
	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.index[s.ID]; ok {
		p.surveys[i] = s
		return
	}
	p.index[s.ID] = len(p.surveys)
	p.surveys = append(p.surveys, s)
}

// remove drops a survey that no longer exists at the store.
func (p *Projection) remove(surveyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.index[surveyID]
	if !ok {
		return
	}
	p.surveys = append(p.surveys[:i], p.surveys[i+1:]...)
	delete(p.index, surveyID)
	for j := i; j < len(p.surveys); j++ {
		p.index[p.surveys[j].ID] = j
	}
}

func clone(s *models.SurveyWithDetails) models.SurveyWithDetails {
	c := *s
	c.Options = append([]models.SurveyOption{}, s.Options...)
	c.Reactions = append([]models.Reaction{}, s.Reactions...)
	c.Comments = append([]models.Comment{}, s.Comments...)
	c.UserVotes = append([]string{}, s.UserVotes...)
	if s.UserReaction != nil {
		kind := *s.UserReaction
		c.UserReaction = &kind
	}
	return c
}
