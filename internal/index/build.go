package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/magtheo/Differ-sub000/internal/grammar"
	"github.com/magtheo/Differ-sub000/internal/span"
)

// Block is a named syntax node kept after the tree is released, so textual
// targets can be matched against the structure without re-parsing.
type Block struct {
	Kind     string
	Span     span.Span
	Children []*Block
}

// Build parses text as language and indexes it. A parse failure yields an
// index with ParseOK false and empty collections; Build itself never fails.
//
// Duplicate names within a collection resolve last-wins: the later symbol
// replaces the earlier one in the earlier one's slot.
func Build(ctx context.Context, host *grammar.Host, text, language string) *FileIndex {
	idx := &FileIndex{
		Language: language,
		Text:     text,
		Classes:  make(map[string]*Class),
		locator:  span.NewLocator(text),
	}

	tree, err := host.Parse(ctx, text, language)
	if err != nil {
		log.Debug().Err(err).Str("language", language).Msg("index: parse failed")
		idx.ParseErr = err
		return idx
	}
	defer tree.Close()

	if err := idx.populate(host, tree); err != nil {
		log.Debug().Err(err).Str("language", language).Msg("index: query failed")
		*idx = FileIndex{Language: language, Text: text, Classes: map[string]*Class{}, locator: idx.locator, ParseErr: err}
		return idx
	}
	idx.ParseOK = true
	return idx
}

// BuildFile detects the language of path and indexes text.
func BuildFile(ctx context.Context, host *grammar.Host, path, text string) *FileIndex {
	lang := host.Registry().Detect(path)
	if lang == "" {
		return &FileIndex{
			Text:     text,
			Classes:  make(map[string]*Class),
			locator:  span.NewLocator(text),
			ParseErr: &grammar.ParseError{Language: "?", Reason: "unsupported file type " + path},
		}
	}
	return Build(ctx, host, text, lang)
}

func (idx *FileIndex) populate(host *grammar.Host, tree *grammar.Tree) error {
	fns, err := host.Query(tree, grammar.Functions)
	if err != nil {
		return fmt.Errorf("functions: %w", err)
	}
	idx.Functions = dedupe(toSymbols(fns, KindFunction))

	imports, err := host.Query(tree, grammar.Imports)
	if err != nil {
		return fmt.Errorf("imports: %w", err)
	}
	idx.Imports = dedupe(toSymbols(imports, KindImport))

	classes, err := host.Query(tree, grammar.Classes)
	if err != nil {
		return fmt.Errorf("classes: %w", err)
	}
	for _, c := range classes {
		cls := &Class{Symbol: Symbol{Name: c.Name, Kind: KindClass, Span: c.Node.Span()}}
		cls.MemberAt, cls.Braced = memberInsert(c.Node)
		methods, err := host.QueryWithin(tree, c.Node, grammar.Methods)
		if err != nil {
			return fmt.Errorf("methods of %s: %w", c.Name, err)
		}
		for _, m := range toSymbols(methods, KindMethod) {
			if cls.Span.Contains(m.Span) {
				cls.Methods = append(cls.Methods, m)
			}
		}
		if prev, ok := idx.Classes[c.Name]; ok {
			prev.Methods = dedupe(append(prev.Methods, cls.Methods...))
			continue
		}
		cls.Methods = dedupe(cls.Methods)
		if cls.Methods == nil {
			cls.Methods = []Symbol{}
		}
		idx.Classes[c.Name] = cls
	}

	idx.blocks = skeleton(tree.Root())
	return nil
}

// memberInsert finds where a new member of the class defined at n belongs.
// Export and decorator wrappers are looked through.
func memberInsert(n grammar.Node) (int, bool) {
	for _, field := range []string{"declaration", "definition"} {
		if d, ok := n.Field(field); ok {
			n = d
		}
	}
	body, ok := n.Field("body")
	if !ok {
		return n.EndByte(), false
	}
	kids := body.Children()
	if k := len(kids); k > 0 && !kids[k-1].IsNamed() && kids[k-1].Kind() == "}" {
		return kids[k-1].StartByte(), true
	}
	return body.EndByte(), false
}

// Blocks returns the named-node skeleton of the snapshot, or nil when the
// snapshot did not parse.
func (f *FileIndex) Blocks() *Block { return f.blocks }

func skeleton(n grammar.Node) *Block {
	b := &Block{Kind: n.Kind(), Span: n.Span()}
	for _, c := range n.Children() {
		if !c.IsNamed() {
			continue
		}
		b.Children = append(b.Children, skeleton(c))
	}
	return b
}

func toSymbols(caps []grammar.Capture, kind SymbolKind) []Symbol {
	out := make([]Symbol, 0, len(caps))
	for _, c := range caps {
		name := c.Name
		if kind == KindImport {
			name = strings.Trim(name, "\"'`")
		}
		out = append(out, Symbol{Name: name, Kind: kind, Span: c.Node.Span()})
	}
	return out
}

func dedupe(syms []Symbol) []Symbol {
	if len(syms) < 2 {
		return syms
	}
	seen := make(map[string]int, len(syms))
	out := syms[:0:0]
	for _, s := range syms {
		if i, ok := seen[s.Name]; ok {
			out[i] = s
			continue
		}
		seen[s.Name] = len(out)
		out = append(out, s)
	}
	return out
}
