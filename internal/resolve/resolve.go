// Package resolve turns a named or textual target into a span of one indexed
// snapshot, or explains why it could not and what the caller may have meant.
package resolve

import (
	"fmt"
	"strings"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/hashline"
	"github.com/magtheo/Differ-sub000/internal/index"
	"github.com/magtheo/Differ-sub000/internal/similarity"
	"github.com/magtheo/Differ-sub000/internal/span"
)

// Confidence grades how precisely a result pins down the target.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Result is the outcome of resolving one target. When Exists is false, Code
// says why and Suggestions lists near misses.
type Result struct {
	Exists      bool
	Span        span.Span
	Confidence  Confidence
	Suggestions []string
	Reason      string
	Code        change.Code
}

// Resolver applies the per-action lookup policy.
type Resolver struct {
	Matcher similarity.Matcher
}

// New returns a resolver that suggests with m.
func New(m similarity.Matcher) *Resolver {
	return &Resolver{Matcher: m}
}

// Resolve locates target for kind in idx. class names the enclosing class
// for method kinds. Resolve is a pure function of its inputs.
func (r *Resolver) Resolve(idx *index.FileIndex, kind change.Kind, target, class string) Result {
	fam := kind.Family()
	if fam != change.FamilyFile && fam != change.FamilyLine && fam != change.FamilyNone && !idx.ParseOK {
		return Result{
			Code:   change.StructuralParseFailure,
			Reason: fmt.Sprintf("file could not be parsed: %v", idx.ParseErr),
		}
	}

	switch fam {
	case change.FamilyFile:
		return Result{
			Exists:     true,
			Span:       idx.Locator().Span(0, len(idx.Text)),
			Confidence: High,
			Reason:     "create_file replaces the whole file",
		}
	case change.FamilyFunction:
		return r.function(idx, target)
	case change.FamilyMethod:
		if kind == change.AddMethod {
			return r.addMethod(idx, target, class)
		}
		return r.method(idx, target, class)
	case change.FamilyImport:
		return r.addImport(idx, target)
	case change.FamilyDeclaration:
		return r.addDeclaration(idx, kind, target)
	case change.FamilyBlock:
		return r.block(idx, kind, target)
	case change.FamilyLine:
		return r.line(idx, target)
	default:
		return Result{Code: change.UnsupportedAction, Reason: fmt.Sprintf("unsupported action %s", kind)}
	}
}

// ResolveRequest resolves req and, when it exists, builds the edit to apply.
func (r *Resolver) ResolveRequest(idx *index.FileIndex, req change.Indexed) (change.Edit, Result) {
	res := r.Resolve(idx, req.Request.Kind, req.Request.Target, req.Request.Class)
	edit := change.Edit{
		File:        req.Request.File,
		Span:        res.Span,
		Replacement: req.Request.Replacement,
		Kind:        req.Request.Kind,
		Request:     req.Index,
	}
	if req.Request.Kind == change.DeleteFunction {
		edit.Replacement = ""
	}
	return edit, res
}

func (r *Resolver) function(idx *index.FileIndex, target string) Result {
	if fn, ok := idx.Function(target); ok {
		return Result{Exists: true, Span: fn.Span, Confidence: High}
	}
	return Result{
		Code:        change.TargetNotFound,
		Reason:      fmt.Sprintf("function %q not found", target),
		Suggestions: r.Matcher.Suggest(target, idx.FunctionNames()),
	}
}

func (r *Resolver) method(idx *index.FileIndex, target, class string) Result {
	cls, ok := idx.Class(class)
	if !ok {
		return r.missingClass(idx, class)
	}
	if m, ok := cls.Method(target); ok {
		return Result{Exists: true, Span: m.Span, Confidence: High}
	}
	return Result{
		Code:        change.TargetNotFound,
		Reason:      fmt.Sprintf("method %q not found in class %q", target, class),
		Suggestions: r.Matcher.Suggest(target, cls.MethodNames()),
	}
}

// addMethod points just before the closing brace of the class body. Bodies
// without one, like Python's, take the new member at the start of the line
// after the body. Inserted text is not re-indented.
func (r *Resolver) addMethod(idx *index.FileIndex, target, class string) Result {
	cls, ok := idx.Class(class)
	if !ok {
		return r.missingClass(idx, class)
	}
	at := cls.MemberAt
	if !cls.Braced {
		at = lineAfter(idx.Text, at)
	}
	res := Result{Exists: true, Span: idx.Locator().Point(at), Confidence: High}
	if _, dup := cls.Method(target); dup && target != "" {
		res.Suggestions = []string{target}
		res.Reason = fmt.Sprintf("method %q already exists in class %q", target, class)
	}
	return res
}

func (r *Resolver) missingClass(idx *index.FileIndex, class string) Result {
	return Result{
		Code:        change.TargetNotFound,
		Reason:      fmt.Sprintf("class %q not found", class),
		Suggestions: r.Matcher.Suggest(class, idx.ClassNames()),
	}
}

// addImport always resolves: new imports go at the start of the line after
// the last import, or at the top of the file. Existing imports that overlap
// the target by substring are reported as suggestions.
func (r *Resolver) addImport(idx *index.FileIndex, target string) Result {
	at := 0
	if n := len(idx.Imports); n > 0 {
		at = lineAfter(idx.Text, idx.Imports[n-1].Span.End.Offset)
	}
	res := Result{Exists: true, Span: idx.Locator().Point(at), Confidence: Medium}

	needle := strings.TrimSpace(target)
	if needle == "" {
		return res
	}
	for _, imp := range idx.Imports {
		if strings.Contains(imp.Name, needle) || strings.Contains(needle, imp.Name) {
			res.Suggestions = append(res.Suggestions, imp.Name)
		}
	}
	if len(res.Suggestions) > 0 {
		res.Reason = fmt.Sprintf("import %q may already be present", needle)
	}
	return res
}

// addDeclaration always resolves to the end of the file; a function of the
// same name is reported as a suggestion.
func (r *Resolver) addDeclaration(idx *index.FileIndex, kind change.Kind, target string) Result {
	res := Result{Exists: true, Span: idx.Locator().Point(len(idx.Text)), Confidence: Medium}
	if target == "" {
		return res
	}
	if _, ok := idx.Function(target); ok {
		res.Suggestions = []string{target}
		res.Reason = fmt.Sprintf("%s: %q already exists", kind, target)
	}
	return res
}

func (r *Resolver) block(idx *index.FileIndex, kind change.Kind, target string) Result {
	m := findBlock(idx, target)
	if !m.found {
		first, _, _ := strings.Cut(strings.TrimSpace(target), "\n")
		limit := r.Matcher.Limit
		if limit <= 0 {
			limit = similarity.DefaultLimit
		}
		suggestions := similarity.LinesContaining(idx.Text, first, limit)
		if len(suggestions) == 0 {
			suggestions = r.Matcher.Suggest(strings.TrimSpace(first), trimmedLines(idx.Text))
		}
		return Result{Code: m.code, Reason: m.reason, Suggestions: suggestions}
	}
	loc := idx.Locator()
	res := Result{Exists: true, Confidence: Medium}
	switch kind {
	case change.InsertBefore:
		res.Span = loc.Point(m.start)
	case change.InsertAfter:
		res.Span = loc.Point(m.end)
	default:
		res.Span = loc.Span(m.start, m.end)
	}
	return res
}

func (r *Resolver) line(idx *index.FileIndex, target string) Result {
	ref, err := hashline.ParseRef(target)
	if err != nil {
		return Result{Code: change.TargetNotFound, Reason: err.Error()}
	}
	lines := strings.Split(idx.Text, "\n")
	if err := ref.Validate(lines); err != nil {
		res := Result{Code: change.TargetNotFound, Reason: err.Error()}
		if ref.Line >= 1 && ref.Line <= len(lines) {
			tagged := hashline.TaggedLine{Num: ref.Line, Hash: hashline.LineHash(lines[ref.Line-1]), Content: lines[ref.Line-1]}
			res.Suggestions = []string{tagged.Tag()}
		}
		return res
	}
	s, _ := idx.Locator().Line(ref.Line)
	if strings.HasSuffix(s.Slice(idx.Text), "\r") {
		s = idx.Locator().Span(s.Start.Offset, s.End.Offset-1)
	}
	conf := Medium
	if ref.Hash != "" {
		conf = High
	}
	return Result{Exists: true, Span: s, Confidence: conf}
}

// lineAfter returns the offset of the first line starting after offset.
func lineAfter(text string, offset int) int {
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(text)
}

func trimmedLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
