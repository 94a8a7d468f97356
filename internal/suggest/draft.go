package suggest

import (
	"strings"

	"pulsevote/internal/models"
)

// DraftCount is how many drafts a generation must yield.
const DraftCount = 5

// Draft is one generated survey idea.
type Draft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Options     []string        `json:"options"`
	ImagePrompt string          `json:"imagePrompt"`
	Category    models.Category `json:"category"`
}

// rawDraft is the untrusted shape the model returns.
type rawDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	ImagePrompt string   `json:"imagePrompt"`
	Category    string   `json:"category"`
}

// validate trims the draft and checks it. Drafts with an empty title, fewer
// than two or more than four non-empty options, or an unknown category are
// rejected.
func (r rawDraft) validate() (Draft, bool) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return Draft{}, false
	}
	options := make([]string, 0, len(r.Options))
	for _, o := range r.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if len(options) < 2 || len(options) > 4 {
		return Draft{}, false
	}
	category, ok := models.ParseCategory(r.Category)
	if !ok {
		return Draft{}, false
	}
	return Draft{
		Title:       title,
		Description: strings.TrimSpace(r.Description),
		Options:     options,
		ImagePrompt: strings.TrimSpace(r.ImagePrompt),
		Category:    category,
	}, true
}

// validDrafts keeps the first DraftCount valid drafts.
func validDrafts(raw []rawDraft) ([]Draft, error) {
	out := make([]Draft, 0, DraftCount)
	for _, r := range raw {
		if d, ok := r.validate(); ok {
			out = append(out, d)
			if len(out) == DraftCount {
				return out, nil
			}
		}
	}
	return nil, ErrInvalidSuggestions
}
