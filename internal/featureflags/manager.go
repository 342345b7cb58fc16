// Package featureflags evaluates the FEATURE_FLAGS switches.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// AnalyticsFallback serves generated analytics when an aggregation fails.
	AnalyticsFallback = "analytics_fallback"
	// TypingIndicators relays inbound typing frames to the addressed profile.
	TypingIndicators = "typing_indicators"
	// MessageImages allows image attachments on direct messages.
	MessageImages = "message_images"
)

var defaults = map[string]string{
	AnalyticsFallback: "on",
	TypingIndicators:  "on",
	MessageImages:     "on",
}

// Flag is one evaluated flag for the admin view.
type Flag struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Manager evaluates flags defined in a key=value list layered over the defaults.
// Example: "analytics_fallback=off,typing_indicators=25%"
type Manager struct {
	flags map[string]string
}

// NewManager parses raw over the built-in defaults.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether name is on for profileID.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic per-profile rollout, e.g. 25%)
func (m *Manager) Enabled(name string, profileID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if profileID == 0 {
		return false
	}
	return rolloutBucket(name, profileID) < pct
}

// On reports whether a process-wide flag is on. Percentage rollouts count as off.
func (m *Manager) On(name string) bool {
	return m.Enabled(name, 0)
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// List returns every flag evaluated for profileID, sorted by name.
func (m *Manager) List(profileID uint) []Flag {
	out := make([]Flag, 0, len(m.flags))
	for name, value := range m.flags {
		out = append(out, Flag{Name: name, Value: value, Enabled: m.Enabled(name, profileID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, profileID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), profileID)))
	return int(h.Sum32() % 100)
}
