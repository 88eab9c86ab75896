package treelight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treelight/treelight/query"
	"github.com/treelight/treelight/syntax"
)

func dummyParser() parserFunc {
	return func([]byte, []syntax.Range) (*syntax.Tree, error) {
		return nil, nil
	}
}

func TestNewConfiguration_NilParser(t *testing.T) {
	_, err := NewConfiguration(nil, "go", nil, nil, nil)
	require.ErrorIs(t, err, ErrInvalidLanguage)
}

func TestNewConfiguration_PatternBoundaries(t *testing.T) {
	injections := []byte(`((comment) @injection.content (#set! injection.language "html"))`)
	locals := []byte(`(block) @local.scope`)
	highlights := []byte("(identifier) @variable\n(comment) @comment")

	cfg, err := NewConfiguration(dummyParser(), "go", highlights, injections, locals)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.query.PatternCount())
	assert.Equal(t, 1, cfg.localsPatternIndex)
	assert.Equal(t, 2, cfg.highlightsPatternIndex)

	assert.Equal(t, "go", cfg.LanguageName())
	assert.GreaterOrEqual(t, cfg.injectionContentCapture, 0)
	assert.Equal(t, -1, cfg.injectionLanguageCapture)
	assert.GreaterOrEqual(t, cfg.localScopeCapture, 0)
	assert.Equal(t, -1, cfg.localDefCapture)
}

func TestNewConfiguration_EmptySectionsCollapse(t *testing.T) {
	cfg, err := NewConfiguration(dummyParser(), "go", []byte(`(identifier) @variable`), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.localsPatternIndex)
	assert.Equal(t, 0, cfg.highlightsPatternIndex)
	assert.Nil(t, cfg.combinedInjectionsQuery)
}

func TestNewConfiguration_CombinedInjectionSplit(t *testing.T) {
	source := []byte("abc defg")
	b := syntax.NewTreeBuilder(source)
	b.Start("doc", true, 0)
	b.Leaf("comment", true, 0, 3)
	b.Leaf("script", true, 4, 8)
	b.End(8)
	tree, err := b.Build()
	require.NoError(t, err)

	injections := []byte(`
((comment) @injection.content
  (#set! injection.language "html")
  (#set! injection.combined))

((script) @injection.content
  (#set! injection.language "js"))
`)

	cfg, err := NewConfiguration(dummyParser(), "doc", nil, injections, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.combinedInjectionsQuery)

	kinds := func(q *query.Query) []string {
		var out []string
		for _, m := range q.Matches(tree, source) {
			for _, c := range m.Captures {
				out = append(out, c.Node.Kind())
			}
		}
		return out
	}

	// The combined pattern is disabled in the main query and vice versa.
	assert.Equal(t, []string{"script"}, kinds(cfg.query))
	assert.Equal(t, []string{"comment"}, kinds(cfg.combinedInjectionsQuery))
}

func TestConfigure_PrefixMatching(t *testing.T) {
	highlights := []byte(`
(a) @function.builtin.static
(b) @function.method
(c) @function
(d) @keyword
`)
	cfg, err := NewConfiguration(dummyParser(), "go", highlights, nil, nil)
	require.NoError(t, err)

	cfg.Configure([]string{"function.builtin", "function", "keyword.operator"})

	indices := make(map[string]*Highlight, len(cfg.Names()))
	for i, name := range cfg.Names() {
		indices[name] = cfg.highlightIndices[i]
	}

	// "function.builtin" is the longest recognized prefix.
	require.NotNil(t, indices["function.builtin.static"])
	assert.Equal(t, Highlight(0), *indices["function.builtin.static"])

	// "function.builtin" does not match, "function" does.
	require.NotNil(t, indices["function.method"])
	assert.Equal(t, Highlight(1), *indices["function.method"])

	require.NotNil(t, indices["function"])
	assert.Equal(t, Highlight(1), *indices["function"])

	// "keyword.operator" has more parts than the capture, so no match.
	assert.Nil(t, indices["keyword"])
}

func TestConfigure_Reconfigure(t *testing.T) {
	cfg, err := NewConfiguration(dummyParser(), "go", []byte(`(a) @keyword`), nil, nil)
	require.NoError(t, err)

	cfg.Configure([]string{"comment", "keyword"})
	require.NotNil(t, cfg.highlightIndices[0])
	assert.Equal(t, Highlight(1), *cfg.highlightIndices[0])

	cfg.Configure([]string{"comment"})
	assert.Nil(t, cfg.highlightIndices[0])
}

func TestNonconformantCaptureNames(t *testing.T) {
	highlights := []byte(`
(a) @keyword
(b) @bogus
(c) @_private
(d) @local.definition
(e) @injection.content
`)
	cfg, err := NewConfiguration(dummyParser(), "go", highlights, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"bogus"}, cfg.NonconformantCaptureNames(nil))

	custom := map[string]struct{}{"bogus": {}}
	assert.Equal(t, []string{"keyword"}, cfg.NonconformantCaptureNames(custom))
}
