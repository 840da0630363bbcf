package patch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/grammar"
	"github.com/magtheo/Differ-sub000/internal/resolve"
	"github.com/magtheo/Differ-sub000/internal/similarity"
	"github.com/magtheo/Differ-sub000/internal/span"
)

func edit(text string, start, end int, repl string, kind change.Kind, req int) change.Edit {
	return change.Edit{
		File:        "f.js",
		Span:        span.NewLocator(text).Span(start, end),
		Replacement: repl,
		Kind:        kind,
		Request:     req,
	}
}

func TestApply(t *testing.T) {
	text := "0123456789"
	tests := []struct {
		name  string
		edits []change.Edit
		want  string
		code  change.Code
	}{
		{"no edits", nil, text, change.CodeNone},
		{"replace", []change.Edit{edit(text, 2, 4, "ab", change.ReplaceBlock, 0)}, "01ab456789", change.CodeNone},
		{"delete and insert", []change.Edit{
			edit(text, 0, 1, "", change.DeleteFunction, 0),
			edit(text, 9, 9, "!", change.InsertAfter, 1),
		}, "12345678!9", change.CodeNone},
		{"same point keeps request order", []change.Edit{
			edit(text, 5, 5, "a", change.InsertBefore, 0),
			edit(text, 5, 5, "b", change.InsertBefore, 1),
		}, "01234ab56789", change.CodeNone},
		{"insert at start of replaced span", []change.Edit{
			edit(text, 3, 6, "R", change.ReplaceBlock, 0),
			edit(text, 3, 3, "I", change.InsertBefore, 1),
			edit(text, 6, 6, "J", change.InsertAfter, 2),
		}, "012IRJ6789", change.CodeNone},
		{"create file alone", []change.Edit{{Kind: change.CreateFile, Replacement: "new"}}, "new", change.CodeNone},
		{"create file mixed", []change.Edit{
			{Kind: change.CreateFile, Replacement: "new"},
			edit(text, 0, 0, "x", change.AddImport, 1),
		}, "", change.CreateFileConflict},
		{"unknown kind", []change.Edit{edit(text, 0, 1, "x", change.KindUnknown, 0)}, "", change.UnsupportedAction},
		{"span past end", []change.Edit{{Kind: change.ReplaceBlock, Span: span.Span{End: span.Position{Offset: 11}}}}, "", change.InvalidSpan},
		{"overlap", []change.Edit{
			edit(text, 2, 6, "a", change.ReplaceBlock, 0),
			edit(text, 5, 8, "b", change.ReplaceBlock, 1),
		}, "", change.OverlappingEditsInFile},
		{"point inside replace", []change.Edit{
			edit(text, 2, 6, "a", change.ReplaceBlock, 0),
			edit(text, 4, 4, "b", change.InsertAfter, 1),
		}, "", change.OverlappingEditsInFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(text, tt.edits)
			if tt.code != change.CodeNone {
				require.Error(t, err)
				assert.Equal(t, tt.code, change.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// applyShifting applies edits one at a time in ascending order, re-deriving
// each offset from the edits already applied.
func applyShifting(text string, edits []change.Edit) string {
	sorted := append([]change.Edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Span.Start.Offset < sorted[j].Span.Start.Offset })
	delta := 0
	for _, e := range sorted {
		start, end := e.Span.Start.Offset+delta, e.Span.End.Offset+delta
		text = text[:start] + e.Replacement + text[end:]
		delta += len(e.Replacement) - (end - start)
	}
	return text
}

func TestApplyOrderInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	text := strings.Repeat("abcdefghij", 30)

	for round := 0; round < 50; round++ {
		cuts := rng.Perm(len(text))[:8]
		sort.Ints(cuts)
		var edits []change.Edit
		for i := 0; i+1 < len(cuts); i += 2 {
			start, end := cuts[i], cuts[i+1]
			if rng.Intn(3) == 0 {
				end = start
			}
			repl := strings.Repeat("X", rng.Intn(6))
			edits = append(edits, edit(text, start, end, repl, change.ReplaceBlock, len(edits)))
		}
		rng.Shuffle(len(edits), func(i, j int) { edits[i], edits[j] = edits[j], edits[i] })

		got, err := Apply(text, edits)
		require.NoError(t, err)
		assert.Equal(t, applyShifting(text, edits), got, "round %d", round)
	}
}

func TestApplyScenarioB(t *testing.T) {
	text := strings.Repeat("x", 500)
	replace := edit(text, 100, 160, "REPLACED", change.ReplaceFunction, 0)
	insert := edit(text, 400, 400, "METHOD", change.AddMethod, 1)

	got, err := Apply(text, []change.Edit{replace, insert})
	require.NoError(t, err)

	manual := text[:400] + "METHOD" + text[400:]
	manual = manual[:100] + "REPLACED" + manual[160:]
	assert.Equal(t, manual, got)
}

type memFS struct {
	files  map[string]string
	writes []string
	fail   map[string]bool
}

func newMemFS(files map[string]string) *memFS {
	return &memFS{files: files, fail: map[string]bool{}}
}

func (m *memFS) Exists(path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *memFS) Read(path string) (string, error) {
	s, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("%s: not found", path)
	}
	return s, nil
}

func (m *memFS) Write(path, content string) error {
	if m.fail[path] {
		return errors.New("disk full")
	}
	m.files[path] = content
	m.writes = append(m.writes, path)
	return nil
}

func testPatcher(t *testing.T) *Patcher {
	t.Helper()
	reg, err := grammar.BuiltinRegistry()
	require.NoError(t, err)
	return New(grammar.NewHost(reg), resolve.New(similarity.Default()))
}

func TestPatchFileScenarioA(t *testing.T) {
	prefix := "// " + strings.Repeat("x", 116) + "\n"
	fn := "function loginUser(name) {\n" + "  // " + strings.Repeat("y", 86) + "\n" + "}"
	suffix := "\n\nfunction other() {}\n"
	require.Len(t, prefix, 120)
	require.Len(t, fn, 120)
	text := prefix + fn + suffix

	body := "function loginUser(name) {\n  return api.login(name);\n}"
	res := testPatcher(t).PatchFile(context.Background(), "auth.js", text, true, []change.Indexed{
		{Index: 0, Request: change.Request{File: "auth.js", Kind: change.ReplaceFunction, Target: "loginUser", Replacement: body}},
	})
	require.Nil(t, res.Err)
	require.Len(t, res.Edits, 1)
	assert.Equal(t, 120, res.Edits[0].Span.Start.Offset)
	assert.Equal(t, 240, res.Edits[0].Span.End.Offset)
	assert.Equal(t, text[:120]+body+text[240:], res.Content)
	assert.True(t, res.Changed)
}

func TestPatchFileEmptyClass(t *testing.T) {
	text := "const a = 1;\nclass Empty {}\n"
	res := testPatcher(t).PatchFile(context.Background(), "e.js", text, true, []change.Indexed{
		{Index: 0, Request: change.Request{Kind: change.AddMethod, Class: "Empty", Target: "reset", Replacement: "\n  reset() {}\n"}},
	})
	require.Nil(t, res.Err)
	assert.Equal(t, "const a = 1;\nclass Empty {\n  reset() {}\n}\n", res.Content)
	assert.True(t, strings.HasPrefix(res.Content, "const a = 1;\nclass Empty {"))
}

func TestPatchFileLanguages(t *testing.T) {
	const (
		goSrc   = "package main\n\nimport \"fmt\"\n\nfunc hello() {\n\tfmt.Println(\"hi\")\n}\n\nfunc (s *Server) Start() error {\n\treturn nil\n}\n"
		jsSrc   = "function init() { return 1; }\n\nclass C {\n  m() {\n    function init() { return 2; }\n    return init();\n  }\n}\n\nexport function f() {}\n"
		tsSrc   = "export class Repo {\n  find(id: string): number {\n    return 1;\n  }\n}\n\nfunction helper(): void {}\n"
		tsxSrc  = "export const App = () => <div />;\n\nclass Store {\n  load() { return 1; }\n}\n"
		pySrc   = "import os\n\n\n@cache\ndef top():\n    return 1\n\n\nclass A:\n    @staticmethod\n    def f():\n        return 1\n\n    def h(self):\n        x = {}\n\n\nprint(A)\n"
		rsSrc   = "struct Foo;\n\nimpl Foo {\n    fn a(&self) -> i32 {\n        1\n    }\n}\n\nimpl Default for Foo {\n    fn default() -> Self {\n        Foo\n    }\n}\n\nfn main() {}\n"
		javaSrc = "import java.util.List;\n\npublic class Greeter {\n    public String hi() {\n        return \"hi\";\n    }\n}\n"
	)

	tests := []struct {
		name string
		file string
		src  string
		req  change.Request
		want string
	}{
		{
			name: "go replace_function",
			file: "main.go", src: goSrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "hello", Replacement: "func hello() {\n\tfmt.Println(\"hello\")\n}"},
			want: strings.Replace(goSrc, `"hi"`, `"hello"`, 1),
		},
		{
			name: "go method as function",
			file: "main.go", src: goSrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "Start", Replacement: "func (s *Server) Start() error {\n\treturn s.run()\n}"},
			want: strings.Replace(goSrc, "return nil", "return s.run()", 1),
		},
		{
			name: "javascript replace_function skips nested",
			file: "a.js", src: jsSrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "init", Replacement: "function init() { return 9; }"},
			want: strings.Replace(jsSrc, "return 1;", "return 9;", 1),
		},
		{
			name: "javascript replace_function exported",
			file: "a.js", src: jsSrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "f", Replacement: "export function f() { return 1; }"},
			want: strings.Replace(jsSrc, "export function f() {}", "export function f() { return 1; }", 1),
		},
		{
			name: "javascript replace_method",
			file: "a.js", src: jsSrc,
			req:  change.Request{Kind: change.ReplaceMethod, Class: "C", Target: "m", Replacement: "m() { return 0; }"},
			want: "function init() { return 1; }\n\nclass C {\n  m() { return 0; }\n}\n\nexport function f() {}\n",
		},
		{
			name: "javascript add_method",
			file: "a.js", src: jsSrc,
			req:  change.Request{Kind: change.AddMethod, Class: "C", Target: "g", Replacement: "  g() {}\n"},
			want: strings.Replace(jsSrc, "  }\n}\n", "  }\n  g() {}\n}\n", 1),
		},
		{
			name: "typescript replace_method",
			file: "repo.ts", src: tsSrc,
			req:  change.Request{Kind: change.ReplaceMethod, Class: "Repo", Target: "find", Replacement: "find(id: string): number {\n    return 2;\n  }"},
			want: strings.Replace(tsSrc, "return 1;", "return 2;", 1),
		},
		{
			name: "typescript add_method",
			file: "repo.ts", src: tsSrc,
			req:  change.Request{Kind: change.AddMethod, Class: "Repo", Target: "count", Replacement: "  count(): number { return 0; }\n"},
			want: strings.Replace(tsSrc, "  }\n}\n", "  }\n  count(): number { return 0; }\n}\n", 1),
		},
		{
			name: "typescript replace_function",
			file: "repo.ts", src: tsSrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "helper", Replacement: "function helper(): number { return 3; }"},
			want: strings.Replace(tsSrc, "function helper(): void {}", "function helper(): number { return 3; }", 1),
		},
		{
			name: "tsx replace_function exported arrow",
			file: "app.tsx", src: tsxSrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "App", Replacement: "export const App = () => <main />;"},
			want: strings.Replace(tsxSrc, "<div />", "<main />", 1),
		},
		{
			name: "tsx replace_method",
			file: "app.tsx", src: tsxSrc,
			req:  change.Request{Kind: change.ReplaceMethod, Class: "Store", Target: "load", Replacement: "load() { return 2; }"},
			want: strings.Replace(tsxSrc, "return 1;", "return 2;", 1),
		},
		{
			name: "tsx add_method",
			file: "app.tsx", src: tsxSrc,
			req:  change.Request{Kind: change.AddMethod, Class: "Store", Target: "save", Replacement: "  save() {}\n"},
			want: strings.Replace(tsxSrc, "}\n}\n", "}\n  save() {}\n}\n", 1),
		},
		{
			name: "python replace_function decorated",
			file: "m.py", src: pySrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "top", Replacement: "@cache\ndef top():\n    return 2"},
			want: strings.Replace(pySrc, "    return 1\n", "    return 2\n", 1),
		},
		{
			name: "python replace_method decorated",
			file: "m.py", src: pySrc,
			req:  change.Request{Kind: change.ReplaceMethod, Class: "A", Target: "f", Replacement: "@classmethod\n    def f(cls):\n        return 2"},
			want: strings.Replace(pySrc, "    @staticmethod\n    def f():\n        return 1", "    @classmethod\n    def f(cls):\n        return 2", 1),
		},
		{
			name: "python add_method",
			file: "m.py", src: pySrc,
			req:  change.Request{Kind: change.AddMethod, Class: "A", Target: "g", Replacement: "    def g(self):\n        pass\n"},
			want: strings.Replace(pySrc, "        x = {}\n", "        x = {}\n    def g(self):\n        pass\n", 1),
		},
		{
			name: "python add_method at end of file",
			file: "m.py", src: "class A:\n    def f(self):\n        return 1\n",
			req:  change.Request{Kind: change.AddMethod, Class: "A", Target: "g", Replacement: "    def g(self):\n        pass\n"},
			want: "class A:\n    def f(self):\n        return 1\n    def g(self):\n        pass\n",
		},
		{
			name: "rust replace_method",
			file: "lib.rs", src: rsSrc,
			req:  change.Request{Kind: change.ReplaceMethod, Class: "Foo", Target: "a", Replacement: "fn a(&self) -> i32 {\n        2\n    }"},
			want: strings.Replace(rsSrc, "        1\n", "        2\n", 1),
		},
		{
			name: "rust replace_method in trait impl",
			file: "lib.rs", src: rsSrc,
			req:  change.Request{Kind: change.ReplaceMethod, Class: "Foo", Target: "default", Replacement: "fn default() -> Self {\n        Foo::new()\n    }"},
			want: strings.Replace(rsSrc, "        Foo\n", "        Foo::new()\n", 1),
		},
		{
			name: "rust add_method goes to first impl",
			file: "lib.rs", src: rsSrc,
			req:  change.Request{Kind: change.AddMethod, Class: "Foo", Target: "b", Replacement: "    fn b(&self) {}\n"},
			want: strings.Replace(rsSrc, "    }\n}\n\nimpl Default", "    }\n    fn b(&self) {}\n}\n\nimpl Default", 1),
		},
		{
			name: "rust replace_function",
			file: "lib.rs", src: rsSrc,
			req:  change.Request{Kind: change.ReplaceFunction, Target: "main", Replacement: "fn main() { run(); }"},
			want: strings.Replace(rsSrc, "fn main() {}", "fn main() { run(); }", 1),
		},
		{
			name: "java replace_method",
			file: "Greeter.java", src: javaSrc,
			req:  change.Request{Kind: change.ReplaceMethod, Class: "Greeter", Target: "hi", Replacement: "public String hi() {\n        return \"hello\";\n    }"},
			want: strings.Replace(javaSrc, `"hi"`, `"hello"`, 1),
		},
		{
			name: "java add_method",
			file: "Greeter.java", src: javaSrc,
			req:  change.Request{Kind: change.AddMethod, Class: "Greeter", Target: "bye", Replacement: "    void bye() {}\n"},
			want: strings.Replace(javaSrc, "    }\n}\n", "    }\n    void bye() {}\n}\n", 1),
		},
	}

	p := testPatcher(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.File = tt.file
			res := p.PatchFile(context.Background(), tt.file, tt.src, true, []change.Indexed{{Index: 0, Request: tt.req}})
			require.Nil(t, res.Err)
			assert.Equal(t, tt.want, res.Content)
		})
	}
}

func TestPatchFileMissingClass(t *testing.T) {
	p := testPatcher(t)
	for file, src := range map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
		"a.py":    "def f():\n    pass\n",
	} {
		res := p.PatchFile(context.Background(), file, src, true, []change.Indexed{
			{Index: 0, Request: change.Request{Kind: change.AddMethod, Class: "Server", Target: "Stop", Replacement: "x"}},
		})
		require.NotNil(t, res.Err, file)
		assert.Equal(t, change.TargetNotFound, res.Err.Code, file)
		assert.Equal(t, src, res.Content, file)
	}
}

func TestPatchFileAllOrNothing(t *testing.T) {
	text := "function a() {}\nfunction b() {}\n"
	p := testPatcher(t)

	res := p.PatchFile(context.Background(), "x.js", text, true, []change.Indexed{
		{Index: 0, Request: change.Request{Kind: change.DeleteFunction, Target: "a"}},
		{Index: 1, Request: change.Request{Kind: change.ReplaceFunction, Target: "bb", Replacement: "x"}},
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, change.TargetNotFound, res.Err.Code)
	assert.Equal(t, 1, res.Err.Request)
	assert.Equal(t, []string{"b"}, res.Err.Suggestions)
	assert.Equal(t, text, res.Content)

	res = p.PatchFile(context.Background(), "x.js", text, true, []change.Indexed{
		{Index: 0, Request: change.Request{Kind: change.ReplaceFunction, Target: "a", Replacement: "x"}},
		{Index: 1, Request: change.Request{Kind: change.ReplaceBlock, Target: "function a() {}", Replacement: "y"}},
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, change.OverlappingEditsInFile, res.Err.Code)
	assert.Equal(t, text, res.Content)

	res = p.PatchFile(context.Background(), "x.js", text, true, []change.Indexed{
		{Index: 3, Request: change.Request{Kind: change.KindUnknown, Target: "a"}},
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, change.UnsupportedAction, res.Err.Code)
	assert.False(t, res.Changed)
}

func TestPatchFileMissingFile(t *testing.T) {
	p := testPatcher(t)

	res := p.PatchFile(context.Background(), "new.js", "", false, []change.Indexed{
		{Index: 0, Request: change.Request{Kind: change.AddFunction, Target: "hello", Replacement: "function hello() {}\n"}},
	})
	require.Nil(t, res.Err)
	assert.True(t, res.Created)
	assert.Equal(t, "function hello() {}\n", res.Content)

	res = p.PatchFile(context.Background(), "new.js", "", false, []change.Indexed{
		{Index: 0, Request: change.Request{Kind: change.ReplaceFunction, Target: "hello"}},
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, change.MissingFile, res.Err.Code)
}

func TestPatchBatch(t *testing.T) {
	fs := newMemFS(map[string]string{
		"a.js": "function a() { return 1; }\n",
		"b.js": "function b() {}\n",
		"c.js": "function c() {}\n",
	})
	fs.fail["c.js"] = true

	reqs := []change.Request{
		{File: "b.js", Kind: change.ReplaceFunction, Target: "missing", Replacement: "x"},
		{File: "a.js", Kind: change.ReplaceBlock, Target: "return 1;", Replacement: "return 2;"},
		{File: "new.js", Kind: change.CreateFile, Replacement: "// new\n"},
		{File: "c.js", Kind: change.DeleteFunction, Target: "c"},
		{File: "a.js", Kind: change.ModifyLine, Target: "L2", Replacement: "// tail"},
	}
	out := testPatcher(t).PatchBatch(context.Background(), reqs, fs, fs)

	require.Len(t, out.Files, 4)
	assert.Equal(t, []string{"b.js", "a.js", "new.js", "c.js"}, []string{out.Files[0].File, out.Files[1].File, out.Files[2].File, out.Files[3].File})

	assert.Equal(t, change.TargetNotFound, out.Files[0].Err.Code)
	assert.Nil(t, out.Files[1].Err)
	assert.True(t, out.Files[1].Committed)
	assert.Nil(t, out.Files[2].Err)
	assert.True(t, out.Files[2].Created)
	require.NotNil(t, out.Files[3].Err)
	assert.False(t, out.Files[3].Committed)

	assert.Equal(t, "function a() { return 2; }\n// tail", fs.files["a.js"])
	assert.Equal(t, "// new\n", fs.files["new.js"])
	assert.Equal(t, "function b() {}\n", fs.files["b.js"])
	assert.Equal(t, "function c() {}\n", fs.files["c.js"])
	assert.Equal(t, []string{"a.js", "new.js"}, fs.writes)
	assert.Equal(t, 2, out.Failed())
	assert.False(t, out.OK())
}

func TestPatchBatchScenarioC(t *testing.T) {
	orig := "import a from 'a';\n"
	fs := newMemFS(map[string]string{"m.js": orig})
	reqs := []change.Request{
		{File: "m.js", Kind: change.CreateFile, Replacement: "fresh"},
		{File: "./m.js", Kind: change.AddImport, Target: "b", Replacement: "import b from 'b';\n"},
	}
	out := testPatcher(t).PatchBatch(context.Background(), reqs, fs, fs)

	require.Len(t, out.Files, 1)
	require.NotNil(t, out.Files[0].Err)
	assert.Equal(t, change.CreateFileConflict, out.Files[0].Err.Code)
	assert.Equal(t, orig, fs.files["m.js"])
	assert.Empty(t, fs.writes)
}

func TestPatchBatchCancelledAndDryRun(t *testing.T) {
	fs := newMemFS(map[string]string{"a.js": "function a() {}\n"})
	reqs := []change.Request{{File: "a.js", Kind: change.DeleteFunction, Target: "a"}}
	p := testPatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := p.PatchBatch(ctx, reqs, fs, fs)
	require.Len(t, out.Files, 1)
	require.NotNil(t, out.Files[0].Err)
	assert.ErrorIs(t, out.Files[0].Err, context.Canceled)
	assert.Empty(t, fs.writes)

	out = p.PatchBatch(context.Background(), reqs, fs, nil)
	require.True(t, out.OK())
	assert.Equal(t, "\n", out.Files[0].Content)
	assert.False(t, out.Files[0].Committed)
	assert.Equal(t, "function a() {}\n", fs.files["a.js"])
}
