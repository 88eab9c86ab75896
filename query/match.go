package query

import (
	"slices"

	"github.com/treelight/treelight/syntax"
)

// Matches executes the query against a tree, returning matches in
// document order of the pattern's root node, with pattern-declaration
// order as the secondary key. Predicates are evaluated against the
// source text; a match whose predicate fails is discarded whole.
func (q *Query) Matches(tree *syntax.Tree, source []byte) []Match {
	if tree == nil {
		return nil
	}

	var matches []Match
	var walk func(n syntax.Node)
	walk = func(n syntax.Node) {
		for pi := range q.patterns {
			pat := &q.patterns[pi]
			if pat.disabled || pat.neverMatch {
				continue
			}
			caps, ok := q.matchElement(pat.root, n)
			if !ok {
				continue
			}
			if !q.checkPredicates(pat, caps, source) {
				continue
			}
			matches = append(matches, Match{PatternIndex: pi, Captures: caps})
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(tree.Root())
	return matches
}

// matchElement matches one pattern element against a node, returning the
// captures it binds. Child constraints are resolved in declaration order
// against a cursor into the child list: each constraint binds children at
// or after the cursor and advances it past every child it binds, so two
// constraints never bind the same child and out-of-order layouts fail.
// Intervening children that do not match a constraint are skipped.
func (q *Query) matchElement(e *element, n syntax.Node) ([]Capture, bool) {
	var caps []Capture

	// Alternation: first branch that matches wins, binding its captures.
	if len(e.alts) > 0 {
		matched := false
		for _, branch := range e.alts {
			if branchCaps, ok := q.matchElement(branch, n); ok {
				caps = append(caps, branchCaps...)
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	} else if !q.matchSelf(e, n) {
		return nil, false
	}

	if e.capture >= 0 {
		caps = append(caps, Capture{
			Name:  q.captureNames[e.capture],
			Index: e.capture,
			Node:  n,
		})
	}

	children := n.Children()
	pos := 0
	for _, ce := range e.children {
		bound := 0
		for i := pos; i < len(children); i++ {
			c := children[i]
			if ce.field != "" && c.Field() != ce.field {
				continue
			}
			childCaps, ok := q.matchElement(ce, c)
			if !ok {
				continue
			}
			caps = append(caps, childCaps...)
			bound++
			pos = i + 1
			if ce.quant == One || ce.quant == ZeroOrOne {
				break
			}
		}

		switch ce.quant {
		case One, OneOrMore:
			if bound == 0 {
				return nil, false
			}
		}
	}

	return caps, true
}

// matchSelf checks the element's own shape constraint against a node.
func (q *Query) matchSelf(e *element, n syntax.Node) bool {
	switch {
	case e.anonymous:
		return !n.Named() && n.Kind() == e.text
	case e.wildcard:
		return !e.namedOnly || n.Named()
	default:
		return n.Named() && n.Kind() == e.kind
	}
}

// checkPredicates evaluates a pattern's text predicates against the
// bound captures. Property predicates (#is? / #is-not?) are left to the
// engine.
func (q *Query) checkPredicates(pat *pattern, caps []Capture, source []byte) bool {
	for i := range pat.predicates {
		pred := &pat.predicates[i]
		text, ok := captureText(pred.capture, caps, source)
		if !ok {
			return false
		}

		var pass bool
		switch pred.kind {
		case predicateEq:
			other := pred.literal
			if pred.hasOther {
				other, ok = captureText(pred.other, caps, source)
				if !ok {
					return false
				}
			}
			pass = text == other
		case predicateMatch:
			pass = pred.regex.MatchString(text)
		case predicateAnyOf:
			pass = slices.Contains(pred.literals, text)
		}

		if pred.negate {
			pass = !pass
		}
		if !pass {
			return false
		}
	}
	return true
}

func captureText(name string, caps []Capture, source []byte) (string, bool) {
	for _, c := range caps {
		if c.Name == name {
			return c.Node.Text(source), true
		}
	}
	return "", false
}
