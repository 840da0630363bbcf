package grammar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
)

// UnknownLanguageError is returned when no grammar is registered for an id.
type UnknownLanguageError struct {
	ID string
}

func (e *UnknownLanguageError) Error() string {
	if e.ID == "" {
		return "no language detected"
	}
	return fmt.Sprintf("no grammar registered for language %q", e.ID)
}

// ParseError reports that a file could not be turned into a usable tree.
type ParseError struct {
	Language string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	msg := "parse " + e.Language + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Host parses text and runs structural queries for the languages of one registry.
//
// Thread Safety: safe for concurrent use. A fresh parser is created per Parse
// call; compiled queries are shared and read-only once built.
type Host struct {
	reg *Registry

	mu      sync.Mutex
	queries map[string]*compiledSet
}

type compiledSet struct {
	once    sync.Once
	err     error
	byKind  [4]*sitter.Query
	lang    *sitter.Language
	langDef *Definition
}

// NewHost returns a host for the languages in reg.
func NewHost(reg *Registry) *Host {
	return &Host{reg: reg, queries: make(map[string]*compiledSet)}
}

// Registry returns the registry the host was built with.
func (h *Host) Registry() *Registry { return h.reg }

// compiled loads the grammar and compiles its queries once per language.
func (h *Host) compiled(def *Definition) (*compiledSet, error) {
	h.mu.Lock()
	set, ok := h.queries[def.ID]
	if !ok {
		set = &compiledSet{langDef: def}
		h.queries[def.ID] = set
	}
	h.mu.Unlock()

	set.once.Do(func() {
		set.lang = def.Language()
		if set.lang == nil {
			set.err = &ParseError{Language: def.ID, Reason: "grammar unavailable"}
			return
		}
		for _, kind := range []CaptureKind{Functions, Classes, Methods, Imports} {
			src := strings.TrimSpace(def.Query(kind))
			if src == "" {
				continue
			}
			q, err := sitter.NewQuery([]byte(src), set.lang)
			if err != nil {
				set.err = fmt.Errorf("compile %s %s query: %w", def.ID, kind, err)
				return
			}
			set.byKind[kind] = q
		}
		log.Debug().Str("language", def.ID).Msg("grammar loaded")
	})
	return set, set.err
}

// Parse parses text as languageID. Unsupported languages, missing grammars
// and syntax errors are reported as *ParseError; Parse never panics on input.
func (h *Host) Parse(ctx context.Context, text, languageID string) (*Tree, error) {
	def, ok := h.reg.Lookup(languageID)
	if !ok {
		return nil, &ParseError{Language: languageID, Reason: "unsupported language", Err: &UnknownLanguageError{ID: languageID}}
	}
	set, err := h.compiled(def)
	if err != nil {
		return nil, &ParseError{Language: def.ID, Reason: "grammar load failed", Err: err}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(set.lang)

	src := []byte(text)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ParseError{Language: def.ID, Reason: "parser failed", Err: err}
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, &ParseError{Language: def.ID, Reason: "empty tree"}
	}
	t := &Tree{tree: tree, src: src, set: set}
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return nil, &ParseError{Language: def.ID, Reason: fmt.Sprintf("syntax error near line %d", line)}
	}
	return t, nil
}

// Query runs the kind query over the whole tree.
func (h *Host) Query(t *Tree, kind CaptureKind) ([]Capture, error) {
	return h.QueryWithin(t, t.Root(), kind)
}

// QueryWithin runs the kind query below within and keeps only captures whose
// definition lies wholly inside within's byte range. Captures come back in
// source order of their definitions.
func (h *Host) QueryWithin(t *Tree, within Node, kind CaptureKind) ([]Capture, error) {
	if t == nil || within.n == nil {
		return nil, fmt.Errorf("query %s: nil tree or node", kind)
	}
	q := t.set.byKind[kind]
	if q == nil {
		return nil, nil
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, within.n)

	var out []Capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, t.src)
		var nameNode, defNode *sitter.Node
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "name":
				nameNode = c.Node
			case "definition":
				defNode = c.Node
			}
		}
		if defNode == nil && nameNode == nil {
			continue
		}
		if defNode == nil {
			defNode = enclosingDefinition(nameNode)
		}
		def := t.wrap(defNode)
		if !within.ContainsNode(def) {
			continue
		}
		var name string
		if nameNode != nil {
			name = nameNode.Content(t.src)
		} else {
			name = strings.TrimSpace(def.Text())
		}
		out = append(out, Capture{Name: name, Node: def})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Node.StartByte() < out[j].Node.StartByte()
	})
	return out, nil
}

// Capture is one query match: the symbol name and its enclosing definition.
type Capture struct {
	Name string
	Node Node
}

// enclosingDefinition walks up from a name node to the closest ancestor that
// looks like a definition.
func enclosingDefinition(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		kind := p.Type()
		for _, marker := range []string{"declaration", "definition", "statement", "_item", "_spec"} {
			if strings.Contains(kind, marker) {
				return p
			}
		}
	}
	return n
}

func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.HasError() {
			return firstErrorLine(c)
		}
	}
	return int(n.StartPoint().Row) + 1
}
