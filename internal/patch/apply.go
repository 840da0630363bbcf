// Package patch applies resolved edits to file snapshots, one file at a time.
package patch

import (
	"slices"
	"strings"

	"github.com/magtheo/Differ-sub000/internal/change"
)

// Apply splices edits into text and returns the new content. Every edit's
// span must refer to text itself. Edits are folded from the highest start
// offset down, so no edit ever needs its offsets adjusted.
//
// A create_file edit must be alone; its replacement becomes the whole file.
// Insertions sharing a point land in request order, and an insertion at the
// start of a replaced span lands before the replacement.
func Apply(text string, edits []change.Edit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	if err := checkCreate(edits); err != nil {
		return "", err
	}
	if len(edits) == 1 && edits[0].Kind == change.CreateFile {
		return edits[0].Replacement, nil
	}

	for _, e := range edits {
		if e.Kind.Family() == change.FamilyNone {
			return "", change.Errorf(change.UnsupportedAction, e.File, e.Request, "unsupported action %s", e.Kind)
		}
		if !e.Span.Valid(len(text)) {
			return "", change.Errorf(change.InvalidSpan, e.File, e.Request,
				"span [%d,%d) outside [0,%d)", e.Span.Start.Offset, e.Span.End.Offset, len(text))
		}
	}
	if err := checkOverlap(edits); err != nil {
		return "", err
	}

	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b change.Edit) int {
		switch {
		case a.Span.Start.Offset != b.Span.Start.Offset:
			return b.Span.Start.Offset - a.Span.Start.Offset
		case a.Span.End.Offset != b.Span.End.Offset:
			return b.Span.End.Offset - a.Span.End.Offset
		default:
			return b.Request - a.Request
		}
	})

	acc := text
	for _, e := range sorted {
		var b strings.Builder
		b.Grow(len(acc) - e.Span.Len() + len(e.Replacement))
		b.WriteString(acc[:e.Span.Start.Offset])
		b.WriteString(e.Replacement)
		b.WriteString(acc[e.Span.End.Offset:])
		acc = b.String()
	}
	return acc, nil
}

func checkCreate(edits []change.Edit) error {
	if len(edits) < 2 {
		return nil
	}
	for _, e := range edits {
		if e.Kind == change.CreateFile {
			return change.Errorf(change.CreateFileConflict, e.File, e.Request,
				"create_file cannot be combined with %d other edits", len(edits)-1)
		}
	}
	return nil
}

func checkOverlap(edits []change.Edit) error {
	for i := range edits {
		for j := i + 1; j < len(edits); j++ {
			if edits[i].Span.Overlaps(edits[j].Span) {
				return change.Errorf(change.OverlappingEditsInFile, edits[j].File, edits[j].Request,
					"edit %s overlaps request %d at %s", edits[j].Span, edits[i].Request, edits[i].Span)
			}
		}
	}
	return nil
}
