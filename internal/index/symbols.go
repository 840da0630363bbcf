// Package index builds the structural index of one file snapshot: its
// functions, classes with their methods, and imports, each with an exact span.
package index

import (
	"sort"

	"github.com/magtheo/Differ-sub000/internal/span"
)

// SymbolKind classifies indexed symbols.
type SymbolKind int

const (
	KindFunction SymbolKind = iota
	KindClass
	KindMethod
	KindImport
	KindBlock
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "func"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindImport:
		return "import"
	case KindBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Symbol is a located function, method, class, import or block.
type Symbol struct {
	Name string
	Kind SymbolKind
	Span span.Span
}

// Class is a class symbol plus its methods in source order.
//
// Several definitions may share a name, like the impl blocks of one Rust
// type. They index as one class: Span and MemberAt come from the first
// block, Methods from all of them.
type Class struct {
	Symbol
	Methods []Symbol

	// MemberAt is the offset new members are inserted at: the closing brace
	// of the body when Braced, otherwise the end of the body.
	MemberAt int
	Braced   bool
}

// Method returns the method called name.
func (c *Class) Method(name string) (Symbol, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Symbol{}, false
}

// MethodNames returns method names in source order.
func (c *Class) MethodNames() []string {
	out := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		out[i] = m.Name
	}
	return out
}

// FileIndex is the structural index of one immutable snapshot. It is never
// updated in place; re-index the new text instead.
type FileIndex struct {
	Language  string
	Text      string
	Functions []Symbol
	Classes   map[string]*Class
	Imports   []Symbol
	ParseOK   bool
	// ParseErr explains why ParseOK is false.
	ParseErr error

	locator *span.Locator
	blocks  *Block
}

// Locator returns the offset-to-position converter of the snapshot.
func (f *FileIndex) Locator() *span.Locator {
	if f.locator == nil {
		return span.NewLocator(f.Text)
	}
	return f.locator
}

// Function returns the function called name.
func (f *FileIndex) Function(name string) (Symbol, bool) {
	for _, s := range f.Functions {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Class returns the class called name.
func (f *FileIndex) Class(name string) (*Class, bool) {
	c, ok := f.Classes[name]
	return c, ok
}

// FunctionNames returns function names in source order.
func (f *FileIndex) FunctionNames() []string { return symbolNames(f.Functions) }

// ImportNames returns import names in source order.
func (f *FileIndex) ImportNames() []string { return symbolNames(f.Imports) }

// ClassNames returns class names ordered by position in the file.
func (f *FileIndex) ClassNames() []string {
	classes := f.SortedClasses()
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

// SortedClasses returns classes ordered by position in the file.
func (f *FileIndex) SortedClasses() []*Class {
	out := make([]*Class, 0, len(f.Classes))
	for _, c := range f.Classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Span.Start.Offset < out[j].Span.Start.Offset
	})
	return out
}

func symbolNames(syms []Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.Name
	}
	return out
}
