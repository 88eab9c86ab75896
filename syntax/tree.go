// Package syntax defines the immutable syntax tree consumed by the
// highlight engine. Trees are produced by an external parser through
// [TreeBuilder] (or [DecodeJSON]) and are never modified afterwards.
package syntax

import "fmt"

// Point is a zero-based row/column position in a source document.
type Point struct {
	Row    uint
	Column uint
}

// Range is a half-open span of source text.
type Range struct {
	StartByte  uint
	EndByte    uint
	StartPoint Point
	EndPoint   Point
}

// MaxByte is the end byte used for ranges that extend to the end of the
// document regardless of its length.
const MaxByte = ^uint(0)

// FullRange returns a range covering an entire document of any length.
func FullRange() Range {
	return Range{
		StartByte: 0,
		EndByte:   MaxByte,
		EndPoint:  Point{Row: ^uint(0), Column: ^uint(0)},
	}
}

// Contains reports whether b is inside the range.
func (r Range) Contains(b uint) bool {
	return r.StartByte <= b && b < r.EndByte
}

// nodeData is the arena record backing a [Node]. Parent and child links
// are arena indices, so the tree has no ownership cycles.
type nodeData struct {
	kind     string
	named    bool
	rng      Range
	parent   int // -1 for the root
	children []int
	field    string // field name on the parent edge, "" if none
}

// Tree is an immutable syntax tree backed by a flat node arena.
type Tree struct {
	nodes  []nodeData
	root   int
	source []byte
}

// Root returns the root node of the tree.
func (t *Tree) Root() Node {
	return Node{tree: t, id: t.root}
}

// Source returns the source text the tree was built from. It may be nil
// when the builder was not given the text.
func (t *Tree) Source() []byte { return t.source }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Node is a lightweight handle into a [Tree]'s arena. The zero Node is
// invalid; use [Node.Exists] to test validity.
type Node struct {
	tree *Tree
	id   int
}

// Exists reports whether the handle refers to a node.
func (n Node) Exists() bool { return n.tree != nil && n.id >= 0 }

func (n Node) data() *nodeData { return &n.tree.nodes[n.id] }

// Kind returns the node's kind tag, e.g. "identifier".
func (n Node) Kind() string { return n.data().kind }

// Named reports whether the node is a named grammar node, as opposed to
// anonymous syntax such as punctuation or keywords.
func (n Node) Named() bool { return n.data().named }

// StartByte returns the byte offset where the node begins.
func (n Node) StartByte() uint { return n.data().rng.StartByte }

// EndByte returns the byte offset where the node ends (exclusive).
func (n Node) EndByte() uint { return n.data().rng.EndByte }

// StartPoint returns the row/column where the node begins.
func (n Node) StartPoint() Point { return n.data().rng.StartPoint }

// EndPoint returns the row/column where the node ends.
func (n Node) EndPoint() Point { return n.data().rng.EndPoint }

// Range returns the node's full span.
func (n Node) Range() Range { return n.data().rng }

// Field returns the field name of the edge from the node's parent, or ""
// if the node is not a field child.
func (n Node) Field() string { return n.data().field }

// Parent returns the node's parent. The result does not exist for the
// root node.
func (n Node) Parent() Node {
	return Node{tree: n.tree, id: n.data().parent}
}

// ChildCount returns the number of children, named and anonymous.
func (n Node) ChildCount() int { return len(n.data().children) }

// Child returns the i-th child, or a non-existent node if out of range.
func (n Node) Child(i int) Node {
	children := n.data().children
	if i < 0 || i >= len(children) {
		return Node{tree: n.tree, id: -1}
	}
	return Node{tree: n.tree, id: children[i]}
}

// Children returns all children in order.
func (n Node) Children() []Node {
	ids := n.data().children
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{tree: n.tree, id: id}
	}
	return out
}

// NamedChild returns the i-th named child, skipping anonymous nodes.
func (n Node) NamedChild(i int) Node {
	count := 0
	for _, id := range n.data().children {
		if n.tree.nodes[id].named {
			if count == i {
				return Node{tree: n.tree, id: id}
			}
			count++
		}
	}
	return Node{tree: n.tree, id: -1}
}

// ChildByField returns the first child attached under the given field
// name, or a non-existent node.
func (n Node) ChildByField(name string) Node {
	for _, id := range n.data().children {
		if n.tree.nodes[id].field == name {
			return Node{tree: n.tree, id: id}
		}
	}
	return Node{tree: n.tree, id: -1}
}

// Text returns the node's source text slice.
func (n Node) Text(source []byte) string {
	r := n.data().rng
	if uint(len(source)) < r.EndByte {
		return ""
	}
	return string(source[r.StartByte:r.EndByte])
}

// Equal reports whether two handles refer to the same node of the same
// tree.
func (n Node) Equal(other Node) bool {
	return n.tree == other.tree && n.id == other.id
}

// String implements fmt.Stringer for debugging output.
func (n Node) String() string {
	if !n.Exists() {
		return "(nil)"
	}
	d := n.data()
	return fmt.Sprintf("(%s [%d, %d])", d.kind, d.rng.StartByte, d.rng.EndByte)
}

// Parser produces a syntax tree for a source document. Implementations
// live outside this module; the engine only consumes the interface.
//
// includedRanges restricts parsing to the given spans of source: nodes of
// the resulting tree must carry absolute byte offsets into source, and
// text outside the ranges must not contribute nodes. It is how injected
// sub-documents (including combined multi-fragment ones) are parsed in
// the parent document's coordinate space. An empty slice means the whole
// document.
type Parser interface {
	Parse(source []byte, includedRanges []Range) (*Tree, error)
}
