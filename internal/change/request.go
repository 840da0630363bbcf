package change

import (
	"path/filepath"

	"github.com/magtheo/Differ-sub000/internal/span"
)

// Request asks for one edit of one file, naming its target rather than its location.
type Request struct {
	File        string `json:"file" yaml:"file"`
	Kind        Kind   `json:"action" yaml:"action"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty"`
	Class       string `json:"class,omitempty" yaml:"class,omitempty"`
	Replacement string `json:"content,omitempty" yaml:"content,omitempty"`
	// RawAction keeps the submitted action name when it did not parse.
	RawAction string `json:"-" yaml:"-"`
}

// Edit is a request whose target has been resolved to a span of one snapshot.
type Edit struct {
	File        string
	Span        span.Span
	Replacement string
	Kind        Kind
	// Request is the index of the originating request in its batch.
	Request int
}

// Indexed pairs a request with its position in the submitted batch.
type Indexed struct {
	Index   int
	Request Request
}

// GroupByFile buckets requests by cleaned file path. The returned slice lists
// files in order of first appearance.
func GroupByFile(reqs []Request) ([]string, map[string][]Indexed) {
	var order []string
	groups := make(map[string][]Indexed)
	for i, r := range reqs {
		key := filepath.Clean(r.File)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], Indexed{Index: i, Request: r})
	}
	return order, groups
}
