package grammar

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/magtheo/Differ-sub000/internal/span"
)

// Tree is a parsed snapshot. Close it when done.
type Tree struct {
	tree *sitter.Tree
	src  []byte
	set  *compiledSet
}

// Root returns the root node.
func (t *Tree) Root() Node { return t.wrap(t.tree.RootNode()) }

// Language returns the language id the tree was parsed as.
func (t *Tree) Language() string { return t.set.langDef.ID }

// Source returns the snapshot the tree was parsed from.
func (t *Tree) Source() []byte { return t.src }

// Close releases the underlying tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

func (t *Tree) wrap(n *sitter.Node) Node {
	return Node{n: n, t: t}
}

// Node is an opaque handle to a syntax node of one Tree.
type Node struct {
	n *sitter.Node
	t *Tree
}

// Valid reports whether the handle points at a node.
func (n Node) Valid() bool { return n.n != nil }

// Kind returns the grammar's node type, e.g. "function_declaration".
func (n Node) Kind() string { return n.n.Type() }

// Language returns the id of the language the node was parsed as.
func (n Node) Language() string { return n.t.Language() }

// Text returns the raw source covered by the node.
func (n Node) Text() string { return n.n.Content(n.t.src) }

// StartByte returns the node's first byte offset.
func (n Node) StartByte() int { return int(n.n.StartByte()) }

// EndByte returns the offset one past the node's last byte.
func (n Node) EndByte() int { return int(n.n.EndByte()) }

// Span returns the node's span. Columns are byte based, like tree-sitter points.
func (n Node) Span() span.Span {
	sp, ep := n.n.StartPoint(), n.n.EndPoint()
	return span.Span{
		Start: span.Position{Line: int(sp.Row) + 1, Column: int(sp.Column) + 1, Offset: n.StartByte()},
		End:   span.Position{Line: int(ep.Row) + 1, Column: int(ep.Column) + 1, Offset: n.EndByte()},
	}
}

// Children returns the node's direct children, named or not.
func (n Node) Children() []Node {
	count := int(n.n.ChildCount())
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.n.Child(i); c != nil {
			out = append(out, n.t.wrap(c))
		}
	}
	return out
}

// Field returns the child stored under the grammar field name.
func (n Node) Field(name string) (Node, bool) {
	c := n.n.ChildByFieldName(name)
	if c == nil {
		return Node{}, false
	}
	return n.t.wrap(c), true
}

// IsNamed reports whether the node is a named grammar rule rather than punctuation.
func (n Node) IsNamed() bool { return n.n.IsNamed() }

// Parent returns the enclosing node; ok is false at the root.
func (n Node) Parent() (Node, bool) {
	p := n.n.Parent()
	if p == nil {
		return Node{}, false
	}
	return n.t.wrap(p), true
}

// ContainsNode reports whether o lies wholly inside n's byte range.
func (n Node) ContainsNode(o Node) bool {
	return o.StartByte() >= n.StartByte() && o.EndByte() <= n.EndByte()
}
