// Package query implements the declarative tree-pattern language used to
// drive syntax highlighting: S-expression node matchers with named
// captures, field constraints, wildcards, quantifiers, predicates and
// directives, compiled from .scm source and executed against a
// [syntax.Tree].
package query

import (
	"fmt"
	"regexp"

	"github.com/treelight/treelight/syntax"
)

// Error is a query compilation failure with source location context.
type Error struct {
	Offset  uint
	Row     uint
	Column  uint
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("query error at %d:%d: %s", e.Row+1, e.Column+1, e.Message)
}

// Quantifier controls how many consecutive children a child pattern may
// bind.
type Quantifier uint8

const (
	// One requires exactly one matching child.
	One Quantifier = iota
	// ZeroOrOne makes the child pattern optional.
	ZeroOrOne
	// ZeroOrMore binds every matching child, allowing none.
	ZeroOrMore
	// OneOrMore binds every matching child, requiring at least one.
	OneOrMore
)

// Property is a key/value pair recorded by a (#set! key value) directive.
type Property struct {
	Key   string
	Value string
}

// PropertyPredicate is a (#is? key) / (#is-not? key) assertion evaluated
// by the engine, not by the matcher. Positive is false for #is-not?.
type PropertyPredicate struct {
	Property Property
	Positive bool
}

// Capture is a named binding from a successful match to a tree node.
type Capture struct {
	Name  string
	Index int // index into Query.CaptureNames
	Node  syntax.Node
}

// Match is one successful application of a pattern.
type Match struct {
	PatternIndex int
	Captures     []Capture
}

type predicateKind uint8

const (
	predicateEq predicateKind = iota
	predicateMatch
	predicateAnyOf
)

// predicate is a post-match text constraint attached to a pattern.
type predicate struct {
	kind     predicateKind
	negate   bool
	capture  string
	other    string // second capture for #eq?, "" when literal form
	hasOther bool
	literal  string
	literals []string
	regex    *regexp.Regexp
}

// element is one node-shape constraint in a compiled pattern. Children
// nest recursively; alternation branches are themselves elements.
type element struct {
	wildcard  bool // matches any node; namedOnly restricts to named nodes
	namedOnly bool
	anonymous bool   // string literal, matches anonymous nodes by kind text
	kind      string // named node kind, "" for wildcard/anonymous/alternation
	text      string // anonymous node text
	alts      []*element
	field     string
	quant     Quantifier
	capture   int // index into Query.captureNames, -1 if none
	children  []*element
}

// pattern is a compiled top-level pattern with its predicates and
// directives.
type pattern struct {
	root       *element
	predicates []predicate
	propPreds  []PropertyPredicate
	properties []Property
	startByte  uint
	neverMatch bool // unknown predicate name: suppress all matches
	disabled   bool
}

// Query is a compiled set of patterns. Pattern order follows source
// order and is significant for tie-breaking between captures.
type Query struct {
	patterns     []pattern
	captureNames []string
}

// New compiles query source in the .scm format. Malformed syntax fails
// the whole query; patterns naming an unknown predicate are kept but
// never match.
func New(source string) (*Query, error) {
	p := &parser{input: source, q: &Query{}}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.q, nil
}

// PatternCount returns the number of top-level patterns.
func (q *Query) PatternCount() int { return len(q.patterns) }

// CaptureNames returns the capture names in order of first appearance.
func (q *Query) CaptureNames() []string { return q.captureNames }

// CaptureIndex returns the index of a capture name, or -1.
func (q *Query) CaptureIndex(name string) int {
	for i, n := range q.captureNames {
		if n == name {
			return i
		}
	}
	return -1
}

// StartByteForPattern returns the offset of a pattern's first byte in
// the query source, for mapping patterns back to concatenated files.
func (q *Query) StartByteForPattern(i int) uint {
	return q.patterns[i].startByte
}

// PatternProperties returns the (#set! ...) directives of a pattern.
func (q *Query) PatternProperties(i int) []Property {
	return q.patterns[i].properties
}

// PatternPropertyPredicates returns the (#is? ...) / (#is-not? ...)
// assertions of a pattern.
func (q *Query) PatternPropertyPredicates(i int) []PropertyPredicate {
	return q.patterns[i].propPreds
}

// DisablePattern prevents a pattern from matching. Used to split
// combined-injection patterns into a separate query.
func (q *Query) DisablePattern(i int) {
	q.patterns[i].disabled = true
}
