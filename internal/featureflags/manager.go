// Package featureflags evaluates the FEATURE_FLAGS rollout string.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags gating optional surfaces of the API.
const (
	PDFExport    = "pdf_export"
	MarketPrices = "market_prices"
	Weather      = "weather"
	RealtimeFeed = "realtime_feed"
)

// Known lists every flag the server consults.
var Known = []string{PDFExport, MarketPrices, Weather, RealtimeFeed}

// Manager evaluates feature flags defined in a key=value list.
// Example: "pdf_export=on,market_prices=25%,weather=off"
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

// Enabled returns whether a flag is enabled for a given account. Unlisted
// flags are off. Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic per-account rollout, e.g. 25%)
func (m *Manager) Enabled(name string, accountID uint) bool {
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
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case accountID == 0:
		// Anonymous callers are outside any partial rollout.
		return false
	}
	return rolloutBucket(name, accountID) < pct
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns the evaluated status of every known and configured flag
// for one account.
func (m *Manager) Snapshot(accountID uint) map[string]bool {
	out := make(map[string]bool, len(Known)+len(m.flags))
	for _, name := range Known {
		out[name] = m.Enabled(name, accountID)
	}
	for name := range m.flags {
		out[name] = m.Enabled(name, accountID)
	}
	return out
}

// Status is the admin view of one flag.
type Status struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Describe lists every known and configured flag with its raw value and its
// evaluation for accountID, sorted by name.
func (m *Manager) Describe(accountID uint) []Status {
	snap := m.Snapshot(accountID)
	out := make([]Status, 0, len(snap))
	for name, enabled := range snap {
		value := m.flags[name]
		if value == "" {
			value = "off"
		}
		out = append(out, Status{Name: name, Value: value, Enabled: enabled})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, accountID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), accountID)
	return int(h.Sum32() % 100)
}
