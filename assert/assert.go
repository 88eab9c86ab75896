// Package assert parses highlight assertions embedded in source comments
// and checks them against resolved highlight runs.
//
// An assertion comment points at a column of an earlier line and names the
// highlight expected there:
//
//	func main() {}
//	// ^ keyword
//	// <- keyword
//
// A caret checks the column it sits in on the nearest line above that is
// not itself an assertion comment. An arrow checks the column the comment
// itself starts in. A leading exclamation mark negates the assertion.
package assert

import (
	"fmt"
	"strings"

	"github.com/treelight/treelight"
	"github.com/treelight/treelight/syntax"
)

// Assertion is a single expectation about the highlight at a position.
type Assertion struct {
	Position syntax.Point
	Expected string
	Negated  bool
}

// Failure describes an assertion that did not hold.
type Failure struct {
	Assertion Assertion
	Actual    string
}

func (f Failure) String() string {
	if f.Assertion.Negated {
		return fmt.Sprintf("%d:%d: expected no %q highlight, found %q",
			f.Assertion.Position.Row, f.Assertion.Position.Column,
			f.Assertion.Expected, f.Actual)
	}
	return fmt.Sprintf("%d:%d: expected %q highlight, found %q",
		f.Assertion.Position.Row, f.Assertion.Position.Column,
		f.Assertion.Expected, f.Actual)
}

// Parse extracts assertions from source. A line is an assertion comment if
// its first non-blank text starts with one of commentPrefixes and the
// remainder contains carets or arrows. Stacked assertion comments all
// resolve to the same code line above them.
func Parse(source []byte, commentPrefixes []string) ([]Assertion, error) {
	lines := strings.Split(string(source), "\n")

	assertionLine := make([]bool, len(lines))
	var assertions []Assertion

	for row, line := range lines {
		body, markerColumn, bodyColumn, ok := commentBody(line, commentPrefixes)
		if !ok {
			continue
		}

		parsed, err := parseBody(body, markerColumn, bodyColumn, row)
		if err != nil {
			return nil, err
		}
		if len(parsed) == 0 {
			continue
		}
		assertionLine[row] = true

		// Find the nearest earlier line that is not itself an
		// assertion comment.
		target := -1
		for prev := row - 1; prev >= 0; prev-- {
			if !assertionLine[prev] {
				target = prev
				break
			}
		}
		if target < 0 {
			return nil, fmt.Errorf("assertion on line %d has no code line above it", row+1)
		}

		for _, a := range parsed {
			a.Position.Row = uint(target)
			assertions = append(assertions, a)
		}
	}

	return assertions, nil
}

// commentBody returns the comment text of an assertion candidate line, the
// column the comment marker starts in, and the column the body starts in.
func commentBody(line string, prefixes []string) (string, int, int, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	indent := len(line) - len(trimmed)
	for _, prefix := range prefixes {
		if rest, ok := strings.CutPrefix(trimmed, prefix); ok {
			return rest, indent, indent + len(prefix), true
		}
	}
	return "", 0, 0, false
}

// parseBody scans a comment body for caret and arrow assertions. The
// column of an arrow assertion is the comment marker's own column; the
// column of a caret assertion is the caret's column in the full line.
func parseBody(body string, markerColumn, bodyColumn, row int) ([]Assertion, error) {
	var assertions []Assertion

	i := 0
	for i < len(body) {
		switch {
		case body[i] == '^':
			column := bodyColumn + i
			name, next, err := readName(body, i+1, row)
			if err != nil {
				return nil, err
			}
			assertions = append(assertions, newAssertion(column, name))
			i = next
		case strings.HasPrefix(body[i:], "<-"):
			name, next, err := readName(body, i+2, row)
			if err != nil {
				return nil, err
			}
			assertions = append(assertions, newAssertion(markerColumn, name))
			i = next
		default:
			i++
		}
	}

	return assertions, nil
}

func newAssertion(column int, name string) Assertion {
	a := Assertion{
		Position: syntax.Point{Column: uint(column)},
		Expected: name,
	}
	if rest, ok := strings.CutPrefix(a.Expected, "!"); ok {
		a.Negated = true
		a.Expected = rest
	}
	return a
}

func readName(body string, pos, row int) (string, int, error) {
	for pos < len(body) && (body[pos] == ' ' || body[pos] == '\t') {
		pos++
	}
	start := pos
	for pos < len(body) && !isSpace(body[pos]) {
		pos++
	}
	if start == pos {
		return "", 0, fmt.Errorf("assertion on line %d is missing a highlight name", row+1)
	}
	return body[start:pos], pos, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

// Check resolves each assertion's position against the runs and reports
// the ones that do not hold. captureNames maps highlight values to the
// names assertions are written in.
func Check(assertions []Assertion, runs []treelight.Run, captureNames []string, source []byte) []Failure {
	lineStarts := lineStartOffsets(source)

	var failures []Failure
	for _, a := range assertions {
		offset := positionOffset(a.Position, lineStarts, len(source))
		actual := highlightAt(offset, runs, captureNames)

		holds := actual == a.Expected
		if a.Negated {
			holds = !holds
		}
		if !holds {
			failures = append(failures, Failure{Assertion: a, Actual: actual})
		}
	}
	return failures
}

func lineStartOffsets(source []byte) []uint {
	starts := []uint{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, uint(i+1))
		}
	}
	return starts
}

func positionOffset(p syntax.Point, lineStarts []uint, sourceLen int) uint {
	if int(p.Row) >= len(lineStarts) {
		return uint(sourceLen)
	}
	return lineStarts[p.Row] + p.Column
}

func highlightAt(offset uint, runs []treelight.Run, captureNames []string) string {
	for _, run := range runs {
		if offset < run.StartByte || offset >= run.EndByte {
			continue
		}
		if run.Highlight == treelight.DefaultHighlight || int(run.Highlight) >= len(captureNames) {
			return ""
		}
		return captureNames[run.Highlight]
	}
	return ""
}
