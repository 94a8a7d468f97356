// Package validation holds input rules shared by services and seeds.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxSurveyTitleLength = 200
	MaxOptionLength      = 200
	MaxGroupNameLength   = 100
	MaxPreferenceName    = 80
	MinOptions           = 2
	MaxOptions           = 6
	MaxDraftOptions      = 4
)

var countryCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// SurveyTitle trims and checks a survey title.
func SurveyTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxSurveyTitleLength {
		return "", fmt.Errorf("title must be at most %d characters", MaxSurveyTitleLength)
	}
	return title, nil
}

// SurveyOptions drops blank options and checks the remaining count is in
// [MinOptions, max].
func SurveyOptions(options []string, max int) ([]string, error) {
	out := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if utf8.RuneCountInString(o) > MaxOptionLength {
			return nil, fmt.Errorf("options must be at most %d characters", MaxOptionLength)
		}
		out = append(out, o)
	}
	if len(out) < MinOptions || len(out) > max {
		return nil, fmt.Errorf("surveys need between %d and %d options", MinOptions, max)
	}
	return out, nil
}

// GroupName trims and checks a group name.
func GroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("group name is required")
	}
	if utf8.RuneCountInString(name) > MaxGroupNameLength {
		return "", fmt.Errorf("group name must be at most %d characters", MaxGroupNameLength)
	}
	return name, nil
}

// TargetCountry normalizes a region code. "" and "all" mean no targeting and
// return nil.
func TargetCountry(code string) (*string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == "ALL" {
		return nil, nil
	}
	if !countryCodeRegex.MatchString(code) {
		return nil, fmt.Errorf("target country must be a two-letter code or \"all\"")
	}
	return &code, nil
}

// PreferenceName trims and checks a catalog name.
func PreferenceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("preference name is required")
	}
	if utf8.RuneCountInString(name) > MaxPreferenceName {
		return "", fmt.Errorf("preference name must be at most %d characters", MaxPreferenceName)
	}
	return name, nil
}

// Color accepts an empty value or a #rgb / #rrggbb hex color.
func Color(color string) error {
	if color == "" || hexColorRegex.MatchString(color) {
		return nil
	}
	return fmt.Errorf("color must be a hex value like #ff8800")
}

// Optional returns nil for blank strings and a trimmed pointer otherwise.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
