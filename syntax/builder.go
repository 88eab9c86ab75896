package syntax

import (
	"fmt"
	"sort"
)

// TreeBuilder assembles an immutable [Tree]. Parsers call [TreeBuilder.Start]
// and [TreeBuilder.End] in depth-first order, optionally tagging the next
// child with [TreeBuilder.Field]. Row/column points are derived from the
// source text, so parsers only deal in byte offsets.
type TreeBuilder struct {
	source    []byte
	lineStart []uint // byte offset of each line start
	nodes     []nodeData
	stack     []int
	nextField string
	root      int
	err       error
}

// NewTreeBuilder creates a builder for a document. The source is retained
// by the built tree and used to compute row/column points.
func NewTreeBuilder(source []byte) *TreeBuilder {
	lineStart := []uint{0}
	for i, b := range source {
		if b == '\n' {
			lineStart = append(lineStart, uint(i)+1)
		}
	}
	return &TreeBuilder{
		source:    source,
		lineStart: lineStart,
		root:      -1,
	}
}

func (b *TreeBuilder) point(offset uint) Point {
	i := sort.Search(len(b.lineStart), func(i int) bool {
		return b.lineStart[i] > offset
	}) - 1
	return Point{Row: uint(i), Column: offset - b.lineStart[i]}
}

// Field sets the field name for the next node started.
func (b *TreeBuilder) Field(name string) *TreeBuilder {
	b.nextField = name
	return b
}

// Start opens a node of the given kind at a byte offset. Named
// distinguishes grammar nodes from anonymous syntax.
func (b *TreeBuilder) Start(kind string, named bool, startByte uint) *TreeBuilder {
	id := len(b.nodes)
	b.nodes = append(b.nodes, nodeData{
		kind:   kind,
		named:  named,
		parent: -1,
		field:  b.nextField,
		rng: Range{
			StartByte:  startByte,
			StartPoint: b.point(startByte),
		},
	})
	b.nextField = ""
	if len(b.stack) > 0 {
		parent := b.stack[len(b.stack)-1]
		b.nodes[id].parent = parent
		b.nodes[parent].children = append(b.nodes[parent].children, id)
	} else if b.root == -1 {
		b.root = id
	} else if b.err == nil {
		b.err = fmt.Errorf("syntax: second root node %q", kind)
	}
	b.stack = append(b.stack, id)
	return b
}

// End closes the most recently started node at a byte offset.
func (b *TreeBuilder) End(endByte uint) *TreeBuilder {
	if len(b.stack) == 0 {
		if b.err == nil {
			b.err = fmt.Errorf("syntax: End without matching Start")
		}
		return b
	}
	id := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.nodes[id].rng.EndByte = endByte
	b.nodes[id].rng.EndPoint = b.point(endByte)
	return b
}

// Leaf adds a childless node spanning [startByte, endByte).
func (b *TreeBuilder) Leaf(kind string, named bool, startByte, endByte uint) *TreeBuilder {
	return b.Start(kind, named, startByte).End(endByte)
}

// Token adds an anonymous leaf whose kind equals its text, the way
// grammars expose keywords and punctuation.
func (b *TreeBuilder) Token(startByte, endByte uint) *TreeBuilder {
	if endByte > uint(len(b.source)) {
		if b.err == nil {
			b.err = fmt.Errorf("syntax: token end %d past source", endByte)
		}
		return b
	}
	return b.Leaf(string(b.source[startByte:endByte]), false, startByte, endByte)
}

// Build finalizes the tree. It fails if Start/End calls were unbalanced
// or node ranges do not nest inside their parents.
func (b *TreeBuilder) Build() (*Tree, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.stack) != 0 {
		return nil, fmt.Errorf("syntax: %d unclosed nodes", len(b.stack))
	}
	if b.root == -1 {
		return nil, fmt.Errorf("syntax: empty tree")
	}
	for _, n := range b.nodes {
		if n.rng.EndByte < n.rng.StartByte {
			return nil, fmt.Errorf("syntax: node %s has inverted range", n.kind)
		}
		if n.parent >= 0 {
			p := b.nodes[n.parent]
			if n.rng.StartByte < p.rng.StartByte || n.rng.EndByte > p.rng.EndByte {
				return nil, fmt.Errorf("syntax: node %s [%d, %d) escapes parent %s",
					n.kind, n.rng.StartByte, n.rng.EndByte, p.kind)
			}
		}
	}
	return &Tree{nodes: b.nodes, root: b.root, source: b.source}, nil
}
