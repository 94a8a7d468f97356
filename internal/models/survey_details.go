package models

// SurveyWithDetails is a survey joined with its options, reactions, comments,
// tag and author, plus the viewer's own votes and reaction. It is a
// per-request projection of store state, never a source of truth.
type SurveyWithDetails struct {
	Survey
	UserVotes    []string      `json:"user_votes"`
	UserReaction *ReactionKind `json:"user_reaction"`
}

// NewSurveyWithDetails wraps s for viewerID and derives the viewer fields.
// votes holds the option IDs the viewer voted for on s.
func NewSurveyWithDetails(s Survey, viewerID string, votes []string) *SurveyWithDetails {
	d := &SurveyWithDetails{Survey: s, UserVotes: votes}
	d.Normalize()
	if viewerID != "" {
		for i := range d.Reactions {
			if d.Reactions[i].UserID == viewerID {
				kind := d.Reactions[i].Reaction
				d.UserReaction = &kind
				break
			}
		}
	}
	return d
}

// Normalize replaces nil collections with empty ones.
func (d *SurveyWithDetails) Normalize() {
	if d.Options == nil {
		d.Options = []SurveyOption{}
	}
	if d.Reactions == nil {
		d.Reactions = []Reaction{}
	}
	if d.Comments == nil {
		d.Comments = []Comment{}
	}
	if d.UserVotes == nil {
		d.UserVotes = []string{}
	}
}

// HasVoted reports whether the viewer already voted for optionID.
func (d *SurveyWithDetails) HasVoted(optionID string) bool {
	for _, id := range d.UserVotes {
		if id == optionID {
			return true
		}
	}
	return false
}

// Option returns the option with the given ID.
func (d *SurveyWithDetails) Option(optionID string) (*SurveyOption, bool) {
	for i := range d.Options {
		if d.Options[i].ID == optionID {
			return &d.Options[i], true
		}
	}
	return nil, false
}
