// Package grammar hosts tree-sitter grammars and the four structural queries
// (functions, classes, methods, imports) each language plugs in.
package grammar

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	sitter "github.com/smacker/go-tree-sitter"
)

// CaptureKind selects one of the four structural queries.
type CaptureKind int

const (
	Functions CaptureKind = iota
	Classes
	Methods
	Imports
)

func (k CaptureKind) String() string {
	switch k {
	case Functions:
		return "functions"
	case Classes:
		return "classes"
	case Methods:
		return "methods"
	case Imports:
		return "imports"
	default:
		return "unknown"
	}
}

// Definition is everything needed to support a language: a grammar plus four
// queries. Each query should capture the symbol name as @name and may capture
// the whole definition as @definition. An empty query matches nothing.
type Definition struct {
	ID         string
	Extensions []string
	// Aliases are extra names, matched case-insensitively, that resolve to ID.
	// Chroma lexer names and aliases are looked up here.
	Aliases  []string
	Language func() *sitter.Language

	FunctionsQuery string
	ClassesQuery   string
	MethodsQuery   string
	ImportsQuery   string
}

// Query returns the query source for kind.
func (d *Definition) Query(kind CaptureKind) string {
	switch kind {
	case Functions:
		return d.FunctionsQuery
	case Classes:
		return d.ClassesQuery
	case Methods:
		return d.MethodsQuery
	case Imports:
		return d.ImportsQuery
	default:
		return ""
	}
}

// Registry is an immutable set of language definitions. Build it once at
// startup and pass it to the Host.
type Registry struct {
	defs    map[string]*Definition
	byExt   map[string]string
	byAlias map[string]string
}

// NewRegistry validates defs and indexes them by id, extension and alias.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		defs:    make(map[string]*Definition, len(defs)),
		byExt:   make(map[string]string),
		byAlias: make(map[string]string),
	}
	for i := range defs {
		d := defs[i]
		if d.ID == "" {
			return nil, fmt.Errorf("grammar definition %d: empty id", i)
		}
		if d.Language == nil {
			return nil, fmt.Errorf("grammar %q: no language", d.ID)
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("grammar %q registered twice", d.ID)
		}
		r.defs[d.ID] = &d
		r.byAlias[strings.ToLower(d.ID)] = d.ID
		for _, a := range d.Aliases {
			r.byAlias[strings.ToLower(a)] = d.ID
		}
		for _, ext := range d.Extensions {
			r.byExt[strings.ToLower(ext)] = d.ID
		}
	}
	return r, nil
}

// Lookup returns the definition registered under id or one of its aliases.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	if d, ok := r.defs[id]; ok {
		return d, true
	}
	if canonical, ok := r.byAlias[strings.ToLower(id)]; ok {
		return r.defs[canonical], true
	}
	return nil, false
}

// IDs returns the registered language ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Detect returns the language id for path, or "" when no grammar handles it.
// Extensions are checked first; chroma's filename matcher is the fallback.
func (r *Registry) Detect(path string) string {
	if id, ok := r.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	lex := lexers.Match(filepath.Base(path))
	if lex == nil {
		return ""
	}
	cfg := lex.Config()
	if id, ok := r.byAlias[strings.ToLower(cfg.Name)]; ok {
		return id
	}
	for _, a := range cfg.Aliases {
		if id, ok := r.byAlias[strings.ToLower(a)]; ok {
			return id
		}
	}
	return ""
}
