package query

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// parser turns .scm source into compiled patterns. Grammar summary:
//
//	pattern   := element
//	element   := "(" kind item* ")" suffix
//	           | "[" element* "]" suffix
//	           | string suffix
//	           | "_" suffix
//	item      := element | field ":" element | "!" field | "." | predicate | "@" capture
//	suffix    := quantifier? ("@" capture)?
//	predicate := "(" "#" name arg* ")"
type parser struct {
	input string
	pos   int
	q     *Query
}

func (p *parser) errorf(at int, format string, args ...any) error {
	row, col := uint(0), uint(0)
	for i := 0; i < at && i < len(p.input); i++ {
		if p.input[i] == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return &Error{
		Offset:  uint(at),
		Row:     row,
		Column:  col,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *parser) parse() error {
	for {
		p.skipTrivia()
		if p.pos >= len(p.input) {
			return nil
		}

		start := p.pos
		ch := p.input[p.pos]

		// A trailing predicate attaches to the preceding pattern.
		if ch == '(' && p.peekAt(p.pos+1) == '#' {
			if len(p.q.patterns) == 0 {
				return p.errorf(p.pos, "predicate must follow a pattern")
			}
			if err := p.parsePredicate(&p.q.patterns[len(p.q.patterns)-1]); err != nil {
				return err
			}
			continue
		}

		pat := pattern{startByte: uint(start)}
		root, err := p.parseChild(&pat)
		if err != nil {
			return err
		}
		pat.root = root
		if err := p.validatePredicates(&pat); err != nil {
			return err
		}
		p.q.patterns = append(p.q.patterns, pat)
	}
}

// parseChild parses one element including its quantifier/capture suffix.
func (p *parser) parseChild(pat *pattern) (*element, error) {
	p.skipTrivia()
	if p.pos >= len(p.input) {
		return nil, p.errorf(p.pos, "unexpected end of query")
	}

	var (
		e   *element
		err error
	)
	switch p.input[p.pos] {
	case '(':
		e, err = p.parseNode(pat)
	case '[':
		e, err = p.parseAlternation(pat)
	case '"':
		var text string
		text, err = p.readString()
		if err == nil {
			e = &element{anonymous: true, text: text, capture: -1}
		}
	case '_':
		if !isWildcardEnd(p.peekAt(p.pos + 1)) {
			return nil, p.errorf(p.pos, "unexpected identifier")
		}
		p.pos++
		e = &element{wildcard: true, capture: -1}
	default:
		return nil, p.errorf(p.pos, "unexpected character %q", string(p.input[p.pos]))
	}
	if err != nil {
		return nil, err
	}

	p.parseSuffix(e)
	return e, nil
}

// parseSuffix consumes an optional quantifier and capture after an
// element, in either order.
func (p *parser) parseSuffix(e *element) {
	for range 2 {
		p.skipTrivia()
		if p.pos >= len(p.input) {
			return
		}
		switch p.input[p.pos] {
		case '*':
			e.quant = ZeroOrMore
			p.pos++
		case '+':
			e.quant = OneOrMore
			p.pos++
		case '?':
			e.quant = ZeroOrOne
			p.pos++
		case '@':
			name, err := p.readCapture()
			if err != nil {
				return
			}
			e.capture = p.ensureCapture(name)
		default:
			return
		}
	}
}

func (p *parser) parseNode(pat *pattern) (*element, error) {
	p.pos++ // consume '('
	p.skipTrivia()
	if p.pos >= len(p.input) {
		return nil, p.errorf(p.pos, "unexpected end of query after '('")
	}

	// Grouping parens associate predicates with a pattern, as in
	// ((identifier) @name (#eq? @name "self")). The group is transparent:
	// it compiles to its single inner pattern.
	if ch := p.input[p.pos]; ch == '(' || ch == '[' || ch == '"' {
		var inner *element
		for {
			p.skipTrivia()
			if p.pos >= len(p.input) {
				return nil, p.errorf(p.pos, "missing ')'")
			}
			c := p.input[p.pos]
			if c == ')' {
				p.pos++
				break
			}
			if c == '(' && p.peekAt(p.pos+1) == '#' {
				if err := p.parsePredicate(pat); err != nil {
					return nil, err
				}
				continue
			}
			if inner != nil {
				return nil, p.errorf(p.pos, "group may contain a single pattern")
			}
			child, err := p.parseChild(pat)
			if err != nil {
				return nil, err
			}
			inner = child
		}
		if inner == nil {
			return nil, p.errorf(p.pos, "empty group")
		}
		return inner, nil
	}

	e := &element{capture: -1}
	if p.input[p.pos] == '_' && isWildcardEnd(p.peekAt(p.pos+1)) {
		p.pos++
		e.wildcard = true
		e.namedOnly = true
	} else {
		kind, err := p.readIdentifier()
		if err != nil {
			return nil, p.errorf(p.pos, "expected node kind after '('")
		}
		e.kind = kind
	}

	for {
		p.skipTrivia()
		if p.pos >= len(p.input) {
			return nil, p.errorf(p.pos, "missing ')'")
		}

		ch := p.input[p.pos]
		switch {
		case ch == ')':
			p.pos++
			return e, nil

		case ch == '@':
			name, err := p.readCapture()
			if err != nil {
				return nil, err
			}
			e.capture = p.ensureCapture(name)

		case ch == '(' && p.peekAt(p.pos+1) == '#':
			if err := p.parsePredicate(pat); err != nil {
				return nil, err
			}

		case ch == '(' || ch == '[' || ch == '"' || ch == '_':
			child, err := p.parseChild(pat)
			if err != nil {
				return nil, err
			}
			e.children = append(e.children, child)

		case ch == '.':
			// Anchors constrain adjacency in the full pattern language;
			// accepted and ignored here.
			p.pos++

		case ch == '!':
			// Negated field constraint, accepted and ignored.
			p.pos++
			if _, err := p.readIdentifier(); err != nil {
				return nil, p.errorf(p.pos, "expected field name after '!'")
			}

		case isIdentStart(ch):
			start := p.pos
			ident, err := p.readIdentifier()
			if err != nil {
				return nil, err
			}
			p.skipTrivia()
			if p.pos >= len(p.input) || p.input[p.pos] != ':' {
				return nil, p.errorf(start, "unexpected identifier %q", ident)
			}
			p.pos++ // consume ':'
			child, err := p.parseChild(pat)
			if err != nil {
				return nil, err
			}
			child.field = ident
			e.children = append(e.children, child)

		default:
			return nil, p.errorf(p.pos, "unexpected character %q", string(ch))
		}
	}
}

func (p *parser) parseAlternation(pat *pattern) (*element, error) {
	p.pos++ // consume '['
	e := &element{capture: -1}
	for {
		p.skipTrivia()
		if p.pos >= len(p.input) {
			return nil, p.errorf(p.pos, "missing ']'")
		}
		if p.input[p.pos] == ']' {
			p.pos++
			if len(e.alts) == 0 {
				return nil, p.errorf(p.pos-1, "empty alternation")
			}
			return e, nil
		}
		branch, err := p.parseChild(pat)
		if err != nil {
			return nil, err
		}
		e.alts = append(e.alts, branch)
	}
}

func (p *parser) parsePredicate(pat *pattern) error {
	start := p.pos
	p.pos++ // consume '('

	name, err := p.readPredicateName()
	if err != nil {
		return err
	}

	type arg struct {
		text      string
		isCapture bool
		isString  bool
	}
	var args []arg
	for {
		p.skipTrivia()
		if p.pos >= len(p.input) {
			return p.errorf(start, "unterminated predicate %s", name)
		}
		ch := p.input[p.pos]
		if ch == ')' {
			p.pos++
			break
		}
		switch {
		case ch == '@':
			capName, err := p.readCapture()
			if err != nil {
				return err
			}
			args = append(args, arg{text: capName, isCapture: true})
		case ch == '"':
			text, err := p.readString()
			if err != nil {
				return err
			}
			args = append(args, arg{text: text, isString: true})
		default:
			token, err := p.readBareToken()
			if err != nil {
				return err
			}
			args = append(args, arg{text: token})
		}
	}

	requireCapture := func(i int) (string, error) {
		if i >= len(args) || !args[i].isCapture {
			return "", p.errorf(start, "%s: argument %d must be a capture", name, i+1)
		}
		return args[i].text, nil
	}

	switch name {
	case "#eq?", "#not-eq?":
		if len(args) != 2 {
			return p.errorf(start, "%s expects two arguments", name)
		}
		capName, err := requireCapture(0)
		if err != nil {
			return err
		}
		pred := predicate{
			kind:    predicateEq,
			negate:  name == "#not-eq?",
			capture: capName,
		}
		if args[1].isCapture {
			pred.other = args[1].text
			pred.hasOther = true
		} else {
			pred.literal = args[1].text
		}
		pat.predicates = append(pat.predicates, pred)

	case "#match?", "#not-match?":
		if len(args) != 2 || !args[1].isString {
			return p.errorf(start, "%s expects a capture and a regex string", name)
		}
		capName, err := requireCapture(0)
		if err != nil {
			return err
		}
		rx, err := regexp.Compile(args[1].text)
		if err != nil {
			return p.errorf(start, "%s: invalid regex: %v", name, err)
		}
		pat.predicates = append(pat.predicates, predicate{
			kind:    predicateMatch,
			negate:  name == "#not-match?",
			capture: capName,
			regex:   rx,
		})

	case "#any-of?", "#not-any-of?":
		if len(args) < 2 {
			return p.errorf(start, "%s expects a capture and at least one literal", name)
		}
		capName, err := requireCapture(0)
		if err != nil {
			return err
		}
		pred := predicate{
			kind:    predicateAnyOf,
			negate:  name == "#not-any-of?",
			capture: capName,
		}
		for _, a := range args[1:] {
			if a.isCapture {
				return p.errorf(start, "%s literals must not be captures", name)
			}
			pred.literals = append(pred.literals, a.text)
		}
		pat.predicates = append(pat.predicates, pred)

	case "#is?", "#is-not?":
		if len(args) < 1 || len(args) > 2 {
			return p.errorf(start, "%s expects a property and optional value", name)
		}
		pp := PropertyPredicate{
			Property: Property{Key: args[0].text},
			Positive: name == "#is?",
		}
		if len(args) == 2 {
			pp.Property.Value = args[1].text
		}
		pat.propPreds = append(pat.propPreds, pp)

	case "#set!":
		if len(args) < 1 || len(args) > 2 {
			return p.errorf(start, "#set! expects a key and optional value")
		}
		prop := Property{Key: args[0].text}
		if len(args) == 2 {
			prop.Value = args[1].text
		}
		pat.properties = append(pat.properties, prop)

	default:
		// An unknown predicate suppresses the pattern instead of
		// failing the whole file, so the remaining patterns still load.
		slog.Warn("unknown query predicate, pattern disabled", "predicate", name)
		pat.neverMatch = true
	}

	return nil
}

// validatePredicates checks that text predicates reference captures the
// pattern actually binds.
func (p *parser) validatePredicates(pat *pattern) error {
	if len(pat.predicates) == 0 {
		return nil
	}

	bound := map[string]bool{}
	var collect func(e *element)
	collect = func(e *element) {
		if e == nil {
			return
		}
		if e.capture >= 0 {
			bound[p.q.captureNames[e.capture]] = true
		}
		for _, a := range e.alts {
			collect(a)
		}
		for _, c := range e.children {
			collect(c)
		}
	}
	collect(pat.root)

	for _, pred := range pat.predicates {
		if !bound[pred.capture] {
			return p.errorf(int(pat.startByte), "predicate references unbound capture @%s", pred.capture)
		}
		if pred.hasOther && !bound[pred.other] {
			return p.errorf(int(pat.startByte), "predicate references unbound capture @%s", pred.other)
		}
	}
	return nil
}

func (p *parser) peekAt(i int) byte {
	if i >= len(p.input) {
		return 0
	}
	return p.input[i]
}

func (p *parser) readIdentifier() (string, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.' || ch == '-' {
			p.pos++
		} else {
			break
		}
	}
	if p.pos == start {
		return "", p.errorf(start, "expected identifier")
	}
	return p.input[start:p.pos], nil
}

func (p *parser) readCapture() (string, error) {
	if p.peekAt(p.pos) != '@' {
		return "", p.errorf(p.pos, "expected '@'")
	}
	p.pos++
	name, err := p.readIdentifier()
	if err != nil {
		return "", p.errorf(p.pos, "expected capture name after '@'")
	}
	return name, nil
}

func (p *parser) readPredicateName() (string, error) {
	if p.peekAt(p.pos) != '#' {
		return "", p.errorf(p.pos, "expected predicate name")
	}
	start := p.pos
	for p.pos < len(p.input) && !isDelimiter(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos], nil
}

func (p *parser) readBareToken() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && !isDelimiter(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf(start, "expected predicate argument")
	}
	return p.input[start:p.pos], nil
}

func (p *parser) readString() (string, error) {
	start := p.pos
	p.pos++ // consume opening '"'
	var sb strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\\' && p.pos+1 < len(p.input) {
			p.pos++
			switch p.input[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		if ch == '"' {
			p.pos++
			return sb.String(), nil
		}
		sb.WriteByte(ch)
		p.pos++
	}
	return "", p.errorf(start, "unterminated string")
}

func (p *parser) skipTrivia() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == ';' {
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *parser) ensureCapture(name string) int {
	for i, n := range p.q.captureNames {
		if n == name {
			return i
		}
	}
	p.q.captureNames = append(p.q.captureNames, name)
	return len(p.q.captureNames) - 1
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isDelimiter(ch byte) bool {
	switch ch {
	case 0, ' ', '\t', '\n', '\r', '(', ')', '[', ']', '"', '@', ';':
		return true
	}
	return false
}

// isWildcardEnd reports whether ch may follow a bare `_` wildcard, which
// includes quantifier suffixes as in `_+`.
func isWildcardEnd(ch byte) bool {
	return isDelimiter(ch) || ch == '*' || ch == '+' || ch == '?'
}
