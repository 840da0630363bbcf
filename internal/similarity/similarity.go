// Package similarity ranks near-miss names for "did you mean" suggestions.
// It is never used for primary resolution.
package similarity

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	// DefaultThreshold is the score a candidate must exceed to be suggested.
	DefaultThreshold = 0.4
	// DefaultLimit caps the number of suggestions.
	DefaultLimit = 3
)

// Similarity returns 1 - levenshtein(a,b)/max(len(a),len(b)), over runes.
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1.0
	}
	return float64(longest-levenshtein.ComputeDistance(a, b)) / float64(longest)
}

// Matcher suggests candidates scoring above Threshold, at most Limit of them.
type Matcher struct {
	Threshold float64
	Limit     int
}

// Default returns a matcher with the default threshold and limit.
func Default() Matcher {
	return Matcher{Threshold: DefaultThreshold, Limit: DefaultLimit}
}

// Suggest returns up to m.Limit candidates scoring strictly above
// m.Threshold, best first. Equal scores keep candidate order.
func (m Matcher) Suggest(target string, candidates []string) []string {
	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	for _, c := range candidates {
		if s := Similarity(target, c); s > m.Threshold {
			hits = append(hits, scored{c, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	limit := m.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// Suggest ranks candidates with the default matcher.
func Suggest(target string, candidates []string, k int) []string {
	m := Default()
	m.Limit = k
	return m.Suggest(target, candidates)
}

// LinesContaining returns up to k trimmed lines of text that contain needle.
func LinesContaining(text, needle string, k int) []string {
	needle = strings.TrimSpace(needle)
	if needle == "" || k <= 0 {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, needle) {
			out = append(out, strings.TrimSpace(line))
			if len(out) == k {
				break
			}
		}
	}
	return out
}
