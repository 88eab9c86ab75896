package treelight

import (
	"fmt"
	"slices"
	"strings"

	"github.com/treelight/treelight/query"
	"github.com/treelight/treelight/syntax"
)

const (
	propInjectionCombined        = "injection.combined"
	propInjectionLanguage        = "injection.language"
	propInjectionSelf            = "injection.self"
	propInjectionParent          = "injection.parent"
	propInjectionIncludeChildren = "injection.include-children"
	propLocal                    = "local"
	propLocalScopeInherits       = "local.scope-inherits"
)

// Configuration holds the compiled queries needed to highlight one
// language. It is immutable after [Configuration.Configure] and can be
// shared between goroutines.
type Configuration struct {
	parser                  syntax.Parser
	languageName            string
	query                   *query.Query
	combinedInjectionsQuery *query.Query

	localsPatternIndex     int
	highlightsPatternIndex int

	highlightIndices         []*Highlight
	nonLocalVariablePatterns []bool

	injectionContentCapture  int
	injectionLanguageCapture int
	localScopeCapture        int
	localDefCapture          int
	localDefValueCapture     int
	localRefCapture          int
}

// NewConfiguration compiles the three query sets for a language. The
// parser is the external collaborator that produces syntax trees for
// the language, including range-restricted sub-parses for injections.
// Any of the query sources may be empty.
func NewConfiguration(parser syntax.Parser, languageName string, highlightsQuery, injectionQuery, localsQuery []byte) (*Configuration, error) {
	if parser == nil {
		return nil, fmt.Errorf("%w: %q has no parser", ErrInvalidLanguage, languageName)
	}

	// Concatenate the query sources, keeping the start offset of each
	// section so pattern indices can be classified afterwards.
	querySource := slices.Clone(injectionQuery)
	localsQueryOffset := uint(len(querySource))
	querySource = append(querySource, localsQuery...)
	highlightsQueryOffset := uint(len(querySource))
	querySource = append(querySource, highlightsQuery...)

	q, err := query.New(string(querySource))
	if err != nil {
		return nil, fmt.Errorf("error creating query: %w", err)
	}

	localsPatternIndex := 0
	highlightsPatternIndex := 0
	for i := range q.PatternCount() {
		patternOffset := q.StartByteForPattern(i)
		if patternOffset < highlightsQueryOffset {
			highlightsPatternIndex++
			if patternOffset < localsQueryOffset {
				localsPatternIndex++
			}
		}
	}

	// Construct a separate query just for the combined injections, and
	// disable each injection pattern in exactly one of the two queries.
	var combinedInjectionsQuery *query.Query
	if len(injectionQuery) > 0 {
		combined, err := query.New(string(injectionQuery))
		if err != nil {
			return nil, fmt.Errorf("error creating combined injections query: %w", err)
		}
		hasCombinedQueries := false
		for i := range localsPatternIndex {
			isCombined := slices.ContainsFunc(q.PatternProperties(i), func(p query.Property) bool {
				return p.Key == propInjectionCombined
			})
			if isCombined {
				hasCombinedQueries = true
				q.DisablePattern(i)
			} else {
				combined.DisablePattern(i)
			}
		}
		if hasCombinedQueries {
			combinedInjectionsQuery = combined
		}
	}

	// Record the highlighting patterns that are disabled for nodes
	// identified as local variables.
	nonLocalVariablePatterns := make([]bool, q.PatternCount())
	for i := range q.PatternCount() {
		nonLocalVariablePatterns[i] = slices.ContainsFunc(q.PatternPropertyPredicates(i), func(pp query.PropertyPredicate) bool {
			return !pp.Positive && pp.Property.Key == propLocal
		})
	}

	cfg := &Configuration{
		parser:                   parser,
		languageName:             languageName,
		query:                    q,
		combinedInjectionsQuery:  combinedInjectionsQuery,
		localsPatternIndex:       localsPatternIndex,
		highlightsPatternIndex:   highlightsPatternIndex,
		highlightIndices:         make([]*Highlight, len(q.CaptureNames())),
		nonLocalVariablePatterns: nonLocalVariablePatterns,
		injectionContentCapture:  q.CaptureIndex("injection.content"),
		injectionLanguageCapture: q.CaptureIndex("injection.language"),
		localScopeCapture:        q.CaptureIndex("local.scope"),
		localDefCapture:          q.CaptureIndex("local.definition"),
		localDefValueCapture:     q.CaptureIndex("local.definition-value"),
		localRefCapture:          q.CaptureIndex("local.reference"),
	}
	return cfg, nil
}

// LanguageName returns the name the configuration was created with.
func (c *Configuration) LanguageName() string { return c.languageName }

// Names returns all capture names used by the configuration's queries.
func (c *Configuration) Names() []string { return c.query.CaptureNames() }

// Configure resolves the query's capture names against a list of
// recognized highlight names. A recognized name matches a capture name
// when its dot-separated parts are a prefix of the capture's parts, so
// "function.builtin" matches "function.builtin.static" but not
// "function.method". The longest matching recognized name wins.
func (c *Configuration) Configure(recognizedNames []string) {
	c.highlightIndices = make([]*Highlight, len(c.query.CaptureNames()))
	for i, captureName := range c.query.CaptureNames() {
		captureParts := strings.Split(captureName, ".")

		bestIndex := -1
		bestMatchLen := 0
		for j, recognizedName := range recognizedNames {
			matchLen := 0
			matches := true
			for k, part := range strings.Split(recognizedName, ".") {
				if k >= len(captureParts) || captureParts[k] != part {
					matches = false
					break
				}
				matchLen++
			}
			if matches && matchLen > bestMatchLen {
				bestIndex = j
				bestMatchLen = matchLen
			}
		}
		if bestIndex >= 0 {
			h := Highlight(bestIndex)
			c.highlightIndices[i] = &h
		}
	}
}

// NonconformantCaptureNames returns the configuration's capture names
// that are neither in the given set nor reserved, nor underscore-private.
// An empty set checks against [StandardCaptureNames].
func (c *Configuration) NonconformantCaptureNames(captureNames map[string]struct{}) []string {
	if len(captureNames) == 0 {
		captureNames = standardCaptureNameSet()
	}
	var result []string
	for _, name := range c.Names() {
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "local.") || strings.HasPrefix(name, "injection.") {
			continue
		}
		if _, ok := captureNames[name]; !ok {
			result = append(result, name)
		}
	}
	return result
}
