// Package span describes byte ranges over one immutable text snapshot.
//
// Offsets are 0-indexed bytes. Lines and columns are 1-indexed; columns count
// bytes, not runes, so they line up with tree-sitter points.
package span

import (
	"fmt"
	"sort"
)

// Position is a location inside a snapshot.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
	Offset int `json:"offset" yaml:"offset"`
}

// Span is the half-open range [Start.Offset, End.Offset).
type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Len returns the number of bytes covered.
func (s Span) Len() int { return s.End.Offset - s.Start.Offset }

// Empty reports whether the span is a zero-length insertion point.
func (s Span) Empty() bool { return s.Len() == 0 }

// Contains reports whether o lies wholly inside s.
func (s Span) Contains(o Span) bool {
	return o.Start.Offset >= s.Start.Offset && o.End.Offset <= s.End.Offset
}

// Overlaps reports whether s and o share at least one byte. An insertion
// point overlaps a span only when it falls strictly inside it; two insertion
// points never overlap.
func (s Span) Overlaps(o Span) bool {
	switch {
	case s.Empty() && o.Empty():
		return false
	case s.Empty():
		return s.Start.Offset > o.Start.Offset && s.Start.Offset < o.End.Offset
	case o.Empty():
		return o.Start.Offset > s.Start.Offset && o.Start.Offset < s.End.Offset
	}
	return s.Start.Offset < o.End.Offset && o.Start.Offset < s.End.Offset
}

// Valid reports whether 0 <= start <= end <= n.
func (s Span) Valid(n int) bool {
	return s.Start.Offset >= 0 && s.Start.Offset <= s.End.Offset && s.End.Offset <= n
}

// Slice returns the text covered by s. The span must be valid for text.
func (s Span) Slice(text string) string { return text[s.Start.Offset:s.End.Offset] }

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d [%d,%d)",
		s.Start.Line, s.Start.Column, s.End.Line, s.End.Column, s.Start.Offset, s.End.Offset)
}

// Locator converts byte offsets of one snapshot into positions.
type Locator struct {
	size       int
	lineStarts []int
}

// NewLocator indexes the line starts of text.
func NewLocator(text string) *Locator {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Locator{size: len(text), lineStarts: starts}
}

// LineCount returns the number of lines; a trailing newline opens an empty last line.
func (l *Locator) LineCount() int { return len(l.lineStarts) }

// Position returns the position of offset, clamped to the snapshot.
func (l *Locator) Position(offset int) Position {
	offset = max(0, min(offset, l.size))
	i := sort.Search(len(l.lineStarts), func(i int) bool { return l.lineStarts[i] > offset }) - 1
	return Position{Line: i + 1, Column: offset - l.lineStarts[i] + 1, Offset: offset}
}

// Span returns the span for [start, end).
func (l *Locator) Span(start, end int) Span {
	return Span{Start: l.Position(start), End: l.Position(end)}
}

// Point returns a zero-length span at offset.
func (l *Locator) Point(offset int) Span {
	p := l.Position(offset)
	return Span{Start: p, End: p}
}

// Line returns the span of 1-indexed line n without its newline.
func (l *Locator) Line(n int) (Span, bool) {
	if n < 1 || n > len(l.lineStarts) {
		return Span{}, false
	}
	start := l.lineStarts[n-1]
	end := l.size
	if n < len(l.lineStarts) {
		end = l.lineStarts[n] - 1
	}
	return l.Span(start, end), true
}
