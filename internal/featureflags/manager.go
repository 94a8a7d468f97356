// Package featureflags evaluates rollout flags from FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Known flags.
const (
	// AISuggestions gates the admin generation endpoints.
	AISuggestions = "ai_suggestions"
	// AutoPublish gates the scheduled auto-publish batch.
	AutoPublish = "auto_publish"
	// GroupSurveys gates survey creation inside groups.
	GroupSurveys = "group_surveys"
)

// rollout is the share of users, 0 to 100, that see a flag.
type rollout int

const (
	off rollout = 0
	on  rollout = 100
)

// defaults apply until FEATURE_FLAGS names the same key.
var defaults = map[string]rollout{
	AISuggestions: on,
	GroupSurveys:  on,
}

// Manager holds flags parsed from a key=value list layered over the
// built-in defaults, e.g. "auto_publish=on,group_surveys=25%".
type Manager struct {
	flags map[string]rollout
}

// NewManager parses raw and overlays it on the defaults one key at a time.
// Values are on/true/1, off/false/0 or N%. Anything else turns the key off.
func NewManager(raw string) *Manager {
	flags := maps.Clone(defaults)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		flags[key] = parseRollout(value)
	}
	return &Manager{flags: flags}
}

func parseRollout(value string) rollout {
	switch value {
	case "on", "true", "1":
		return on
	case "off", "false", "0":
		return off
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || !strings.HasSuffix(value, "%") {
		return off
	}
	return rollout(min(max(pct, 0), 100))
}

// Enabled reports whether name is on for userID. Partial rollouts hash the
// user into a stable bucket and never include anonymous callers.
func (m *Manager) Enabled(name string, userID string) bool {
	if m == nil {
		return false
	}
	r := m.flags[normalize(name)]
	switch {
	case r >= on:
		return true
	case r <= off, userID == "":
		return false
	}
	return bucket(name, userID) < int(r)
}

// Global reports whether a flag is switched on for everyone. Percentage
// rollouts count as on only at 100%.
func (m *Manager) Global(name string) bool {
	return m.Enabled(name, "")
}

// Snapshot evaluates every known flag for one user.
func (m *Manager) Snapshot(userID string) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
