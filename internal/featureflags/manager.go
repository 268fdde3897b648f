// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// Realtime publishes thought events and serves the /ws stream.
	Realtime = "realtime"
	// ThoughtCache serves single-thought reads through Redis.
	ThoughtCache = "thought_cache"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "realtime=on,thought_cache=off,realtime_beta=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
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

// Enabled returns whether a flag is enabled for subject (a user ID or client
// address). Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic rollout by subject, e.g. 25%)
//
// Percentage rollouts never include the empty subject.
func (m *Manager) Enabled(name, subject string) bool {
	pct, ok := m.rollout(name)
	if !ok || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if subject == "" {
		return false
	}
	return rolloutBucket(name, subject) < pct
}

// Active reports whether a flag is enabled for anyone at all.
func (m *Manager) Active(name string) bool {
	pct, ok := m.rollout(name)
	return ok && pct > 0
}

// rollout returns the flag as a percentage; on is 100 and off is 0.
func (m *Manager) rollout(name string) (int, bool) {
	if m == nil {
		return 0, false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return 0, false
	}

	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}

	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || !strings.HasSuffix(value, "%") {
		return 0, false
	}
	return pct, true
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one subject.
func (m *Manager) Snapshot(subject string) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, subject)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + subject))
	return int(h.Sum32() % 100)
}
