package syntax

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeBuilder_Basic(t *testing.T) {
	source := []byte("let x = 1\nx\n")

	b := NewTreeBuilder(source)
	b.Start("program", true, 0)
	b.Start("declaration", true, 0)
	b.Token(0, 3)
	b.Field("name").Leaf("identifier", true, 4, 5)
	b.Token(6, 7)
	b.Field("value").Leaf("number", true, 8, 9)
	b.End(9)
	b.Leaf("identifier", true, 10, 11)
	b.End(12)
	tree, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, 7, tree.Len())
	root := tree.Root()
	assert.Equal(t, "program", root.Kind())
	assert.True(t, root.Named())
	assert.False(t, root.Parent().Exists())
	assert.Equal(t, 2, root.ChildCount())

	decl := root.Child(0)
	assert.Equal(t, "declaration", decl.Kind())
	assert.Equal(t, uint(0), decl.StartByte())
	assert.Equal(t, uint(9), decl.EndByte())
	assert.True(t, decl.Parent().Equal(root))

	let := decl.Child(0)
	assert.Equal(t, "let", let.Kind())
	assert.False(t, let.Named())
	assert.Equal(t, "let", let.Text(source))

	name := decl.ChildByField("name")
	require.True(t, name.Exists())
	assert.Equal(t, "identifier", name.Kind())
	assert.Equal(t, "x", name.Text(source))
	assert.Equal(t, "name", name.Field())
	assert.Equal(t, "(identifier [4, 5])", name.String())

	assert.False(t, decl.ChildByField("missing").Exists())
	assert.False(t, decl.Child(99).Exists())

	// NamedChild skips the anonymous tokens.
	assert.True(t, decl.NamedChild(0).Equal(name))
	assert.Equal(t, "number", decl.NamedChild(1).Kind())
	assert.False(t, decl.NamedChild(2).Exists())
}

func TestTreeBuilder_Points(t *testing.T) {
	source := []byte("ab\ncd\n\nef")

	b := NewTreeBuilder(source)
	b.Start("doc", true, 0)
	b.Leaf("word", true, 3, 5) // "cd"
	b.Leaf("word", true, 7, 9) // "ef"
	b.End(9)
	tree, err := b.Build()
	require.NoError(t, err)

	root := tree.Root()
	assert.Equal(t, Point{Row: 0, Column: 0}, root.StartPoint())
	assert.Equal(t, Point{Row: 3, Column: 2}, root.EndPoint())

	cd := root.Child(0)
	assert.Equal(t, Point{Row: 1, Column: 0}, cd.StartPoint())
	assert.Equal(t, Point{Row: 1, Column: 2}, cd.EndPoint())

	ef := root.Child(1)
	assert.Equal(t, Point{Row: 3, Column: 0}, ef.StartPoint())
}

func TestTreeBuilder_Errors(t *testing.T) {
	t.Run("unclosed node", func(t *testing.T) {
		b := NewTreeBuilder([]byte("x"))
		b.Start("doc", true, 0)
		_, err := b.Build()
		require.ErrorContains(t, err, "unclosed")
	})

	t.Run("end without start", func(t *testing.T) {
		b := NewTreeBuilder([]byte("x"))
		b.End(1)
		_, err := b.Build()
		require.ErrorContains(t, err, "End without matching Start")
	})

	t.Run("second root", func(t *testing.T) {
		b := NewTreeBuilder([]byte("xy"))
		b.Leaf("a", true, 0, 1)
		b.Leaf("b", true, 1, 2)
		_, err := b.Build()
		require.ErrorContains(t, err, "second root")
	})

	t.Run("empty tree", func(t *testing.T) {
		b := NewTreeBuilder(nil)
		_, err := b.Build()
		require.ErrorContains(t, err, "empty tree")
	})

	t.Run("child escapes parent", func(t *testing.T) {
		b := NewTreeBuilder([]byte("abcd"))
		b.Start("doc", true, 0)
		b.Leaf("word", true, 1, 4)
		b.End(2)
		_, err := b.Build()
		require.ErrorContains(t, err, "escapes parent")
	})

	t.Run("token past source end", func(t *testing.T) {
		b := NewTreeBuilder([]byte("ab"))
		b.Start("doc", true, 0)
		b.Token(0, 5)
		b.End(2)
		_, err := b.Build()
		require.ErrorContains(t, err, "past source")
	})
}

func TestRange(t *testing.T) {
	r := Range{StartByte: 2, EndByte: 5}
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(5))
	assert.False(t, r.Contains(1))

	full := FullRange()
	assert.Equal(t, uint(0), full.StartByte)
	assert.Equal(t, MaxByte, full.EndByte)
	assert.True(t, full.Contains(1<<40))
}

func TestDecodeJSON(t *testing.T) {
	source := []byte("let x = 1")
	dump := `{
		"kind": "program",
		"start": 0,
		"end": 9,
		"children": [
			{"kind": "let", "named": false, "start": 0, "end": 3},
			{"kind": "identifier", "field": "name", "start": 4, "end": 5},
			{"kind": "number", "field": "value", "start": 8, "end": 9}
		]
	}`

	tree, err := DecodeJSON(strings.NewReader(dump), source)
	require.NoError(t, err)

	root := tree.Root()
	assert.Equal(t, "program", root.Kind())
	require.Equal(t, 3, root.ChildCount())
	assert.False(t, root.Child(0).Named())
	assert.True(t, root.Child(1).Named())
	assert.Equal(t, "x", root.ChildByField("name").Text(source))
	assert.Equal(t, "number", root.ChildByField("value").Kind())
}

func TestDecodeJSON_Errors(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"kind":`), nil)
	require.Error(t, err)

	_, err = DecodeJSON(strings.NewReader(`{"kind": "a", "start": 0, "end": 1, "bogus": 2}`), []byte("x"))
	require.Error(t, err)

	// Structural validation still applies to decoded trees.
	_, err = DecodeJSON(strings.NewReader(`{
		"kind": "doc", "start": 0, "end": 1,
		"children": [{"kind": "word", "start": 0, "end": 5}]
	}`), []byte("x"))
	require.ErrorContains(t, err, "escapes parent")
}
