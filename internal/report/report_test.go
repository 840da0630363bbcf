package report

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/assert"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/hashline"
	"github.com/magtheo/Differ-sub000/internal/patch"
	"github.com/magtheo/Differ-sub000/internal/span"
	"github.com/magtheo/Differ-sub000/internal/validate"
)

func at(line, col int) *span.Span {
	p := span.Position{Line: line, Column: col}
	return &span.Span{Start: p, End: p}
}

func sampleSummary() validate.Summary {
	return validate.Summary{
		Results: []validate.Result{
			{
				Index:   0,
				Request: change.Request{File: "src/auth.js", Kind: change.ReplaceFunction, Target: "loginUser"},
				Valid:   true,
				Span:    at(3, 1),
			},
			{
				Index:   1,
				Request: change.Request{File: "src/auth.js", Kind: change.ReplaceFunction, Target: "loginUsr"},
				Errors: []*change.Error{{
					Code: change.TargetNotFound, Msg: `function "loginUsr" not found`, Suggestions: []string{"loginUser"},
				}},
			},
			{
				Index:   2,
				Request: change.Request{File: "src/auth.js", Kind: change.AddMethod, Class: "Session", Target: "close"},
				Valid:   true,
				Span:    at(9, 3),
				Warnings: []*change.Error{{
					Msg: `method "close" already exists in class "Session"`, Suggestions: []string{"close"},
				}},
			},
			{
				Index:   3,
				Request: change.Request{File: "src/new.js", Kind: change.KindUnknown, RawAction: "rename_symbol", Target: "a"},
				Errors:  []*change.Error{{Code: change.UnsupportedAction, Msg: `unsupported action "rename_symbol"`}},
			},
		},
		Total:        4,
		Valid:        2,
		Invalid:      2,
		WithWarnings: 1,
		Files:        []string{"src/auth.js", "src/new.js"},
	}
}

func TestValidationGolden(t *testing.T) {
	out := New(false, 0).Validation(sampleSummary())
	golden.RequireEqual(t, []byte(out))
}

func TestValidationColorMatchesPlain(t *testing.T) {
	sum := sampleSummary()
	plain := New(false, 0).Validation(sum)
	colored := New(true, 0).Validation(sum)
	assert.Equal(t, plain, ansi.Strip(colored))
}

func TestValidationTruncatesTargets(t *testing.T) {
	sum := validate.Summary{Results: []validate.Result{{
		Request: change.Request{File: "a.js", Kind: change.ReplaceBlock, Target: "if (user.isLoggedIn()) {\n  logout();\n}"},
		Valid:   true,
	}}, Total: 1, Valid: 1, Files: []string{"a.js"}, OverallValid: true}

	out := New(false, 10).Validation(sum)
	assert.Contains(t, out, "[0] replace_block if (user.…  a.js\n")
	assert.Contains(t, out, "1 request, 1 valid, 0 invalid, 0 with warnings across 1 file in 0s\nOK\n")
}

func TestBatch(t *testing.T) {
	res := patch.BatchResult{Files: []patch.FileResult{
		{File: "a.js", Original: "one\ntwo\n", Content: "one\n2\n", Changed: true, Edits: make([]change.Edit, 1)},
		{File: "b.js", Err: &change.Error{Code: change.OverlappingEditsInFile, File: "b.js", Request: 2, Msg: "edits overlap"}},
		{File: "c.js", Content: "new\n", Changed: true, Created: true, Edits: make([]change.Edit, 1)},
	}}

	out := New(false, 0).Batch(res, true)
	assert.Contains(t, out, "✓ a.js  would be modified (1 edit)\n")
	assert.Contains(t, out, "--- a/a.js\n+++ b/a.js\n")
	assert.Contains(t, out, "-two\n+2\n")
	assert.Contains(t, out, "✗ b.js\n    error: overlapping_edits_in_file: edits overlap\n")
	assert.Contains(t, out, "✓ c.js  would be created (1 edit)\n")
	assert.Contains(t, out, "\n3 files, 2 patched, 1 failed\n")

	applied := New(false, 0).Batch(res, false)
	assert.Contains(t, applied, "✓ a.js  modified (1 edit)\n")
	assert.NotContains(t, applied, "+++")

	assert.Equal(t, ansi.Strip(New(true, 0).Batch(res, true)), out)
}

func TestDiff(t *testing.T) {
	assert.Empty(t, Diff("x.go", "same\n", "same\n"))
	d := Diff("x.go", "a\nb\nc\n", "a\nB\nc\n")
	assert.Contains(t, d, "--- a/x.go\n")
	assert.Contains(t, d, "-b\n+B\n")
}

func TestSource(t *testing.T) {
	text := "package main\n\n// main does nothing.\nfunc main() {}\n"
	plain := New(false, 0).Source("main.go", "go", text)

	lines := strings.Split(strings.TrimSuffix(plain, "\n"), "\n")
	assert.Len(t, lines, 4)
	for i, line := range hashline.TagLines(text)[:4] {
		assert.Equal(t, line.Tag(), lines[i])
	}

	colored := New(true, 0).Source("main.go", "go", text)
	assert.Equal(t, plain, ansi.Strip(colored))
	assert.Equal(t, "1:"+hashline.LineHash("x")+"|x\n", New(false, 0).Source("notes", "", "x"))
}
