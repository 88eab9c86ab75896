package assert

import (
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treelight/treelight"
	"github.com/treelight/treelight/syntax"
)

var slashPrefixes = []string{"//", "#"}

func TestParse_CaretsAndArrows(t *testing.T) {
	source := []byte("" +
		"let x = y\n" +
		"// <- keyword\n" +
		"//  ^ variable\n" +
		"//      ^ !constant\n")

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)

	tassert.Equal(t, []Assertion{
		{Position: syntax.Point{Row: 0, Column: 0}, Expected: "keyword"},
		{Position: syntax.Point{Row: 0, Column: 4}, Expected: "variable"},
		{Position: syntax.Point{Row: 0, Column: 8}, Expected: "constant", Negated: true},
	}, assertions)
}

func TestParse_StackedCommentsShareTarget(t *testing.T) {
	source := []byte("" +
		"a b\n" +
		"// <- first\n" +
		"//^ second\n" +
		"c d\n" +
		"// <- third\n")

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)

	require.Len(t, assertions, 3)
	tassert.Equal(t, uint(0), assertions[0].Position.Row)
	tassert.Equal(t, uint(0), assertions[1].Position.Row)
	tassert.Equal(t, uint(2), assertions[1].Position.Column)
	tassert.Equal(t, uint(3), assertions[2].Position.Row)
}

func TestParse_IndentedArrow(t *testing.T) {
	source := []byte("" +
		"  foo\n" +
		"  // <- function\n")

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)

	require.Len(t, assertions, 1)
	tassert.Equal(t, syntax.Point{Row: 0, Column: 2}, assertions[0].Position)
	tassert.Equal(t, "function", assertions[0].Expected)
}

func TestParse_HashPrefix(t *testing.T) {
	source := []byte("" +
		"x = 1\n" +
		"# <- variable\n")

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)
	require.Len(t, assertions, 1)
	tassert.Equal(t, "variable", assertions[0].Expected)
}

func TestParse_MultipleCaretsPerLine(t *testing.T) {
	source := []byte("" +
		"a = b\n" +
		"//^ x ^ y\n")

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)

	require.Len(t, assertions, 2)
	tassert.Equal(t, uint(2), assertions[0].Position.Column)
	tassert.Equal(t, "x", assertions[0].Expected)
	tassert.Equal(t, uint(6), assertions[1].Position.Column)
	tassert.Equal(t, "y", assertions[1].Expected)
}

func TestParse_PlainCommentsIgnored(t *testing.T) {
	source := []byte("" +
		"// just a comment\n" +
		"x = 1\n")

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)
	tassert.Empty(t, assertions)
}

func TestParse_Errors(t *testing.T) {
	t.Run("no code line above", func(t *testing.T) {
		_, err := Parse([]byte("// <- keyword\n"), slashPrefixes)
		require.ErrorContains(t, err, "no code line above")
	})

	t.Run("missing highlight name", func(t *testing.T) {
		_, err := Parse([]byte("x\n// ^\n"), slashPrefixes)
		require.ErrorContains(t, err, "missing a highlight name")
	})
}

func TestCheck(t *testing.T) {
	// "def foo" with "def" highlighted as keyword and "foo" as function.
	source := []byte("" +
		"def foo\n" +
		"// <- keyword\n" +
		"//  ^ function\n" +
		"//  ^ !keyword\n")
	captureNames := []string{"keyword", "function"}
	runs := []treelight.Run{
		{StartByte: 0, EndByte: 3, Highlight: 0, Language: "ruby"},
		{StartByte: 3, EndByte: 4, Highlight: treelight.DefaultHighlight, Language: "ruby"},
		{StartByte: 4, EndByte: 7, Highlight: 1, Language: "ruby"},
		{StartByte: 7, EndByte: uint(len(source)), Highlight: treelight.DefaultHighlight, Language: "ruby"},
	}

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)
	require.Len(t, assertions, 3)

	tassert.Empty(t, Check(assertions, runs, captureNames, source))
}

func TestCheck_Failures(t *testing.T) {
	source := []byte("" +
		"def foo\n" +
		"//  ^ function\n" +
		"// <- !keyword\n")
	captureNames := []string{"keyword", "function"}
	runs := []treelight.Run{
		{StartByte: 0, EndByte: 7, Highlight: 0},
		{StartByte: 7, EndByte: uint(len(source)), Highlight: treelight.DefaultHighlight},
	}

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)

	failures := Check(assertions, runs, captureNames, source)
	require.Len(t, failures, 2)

	tassert.Equal(t, "function", failures[0].Assertion.Expected)
	tassert.Equal(t, "keyword", failures[0].Actual)
	tassert.Equal(t, `0:4: expected "function" highlight, found "keyword"`, failures[0].String())

	tassert.True(t, failures[1].Assertion.Negated)
	tassert.Equal(t, `0:0: expected no "keyword" highlight, found "keyword"`, failures[1].String())
}

func TestCheck_UnhighlightedPosition(t *testing.T) {
	source := []byte("" +
		"x\n" +
		"// <- !keyword\n")
	runs := []treelight.Run{
		{StartByte: 0, EndByte: uint(len(source)), Highlight: treelight.DefaultHighlight},
	}

	assertions, err := Parse(source, slashPrefixes)
	require.NoError(t, err)
	tassert.Empty(t, Check(assertions, runs, []string{"keyword"}, source))
}
