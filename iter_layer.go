package treelight

import (
	"github.com/treelight/treelight/query"
	"github.com/treelight/treelight/syntax"
)

type highlightQueueItem struct {
	config Configuration
	depth  int
	ranges []syntax.Range
}

type injectionItem struct {
	languageName    string
	nodes           []syntax.Node
	includeChildren bool
}

type sortKey struct {
	offset uint
	start  bool
	depth  int
}

// compare orders sort keys lexicographically: by byte offset, then
// highlight ends before starts, then deeper layers first.
// Returns:
//
// -1 if other is greater
//
//	1 if k is greater
//
// 0 if both are equal
func (k sortKey) compare(other sortKey) int {
	if k.offset < other.offset {
		return -1
	}
	if k.offset > other.offset {
		return 1
	}

	if !k.start && other.start {
		return -1
	}
	if k.start && !other.start {
		return 1
	}

	if k.depth < other.depth {
		return -1
	}
	if k.depth > other.depth {
		return 1
	}

	return 0
}

func (k sortKey) greaterThan(other sortKey) bool {
	return k.compare(other) == 1
}

func (k sortKey) lessThan(other sortKey) bool {
	return k.compare(other) == -1
}

// localDef is one definition recorded in a scope. The highlight is
// back-patched when the defining node's own highlight resolves, so
// later references repeat it.
type localDef struct {
	name       string
	valueRange syntax.Range
	highlight  *Highlight
}

// localScope is one frame of a layer's scope stack.
type localScope struct {
	inherits bool
	rng      syntax.Range
	defs     []*localDef
}

func rootScope() *localScope {
	return &localScope{
		inherits: false,
		rng:      syntax.FullRange(),
	}
}

// newIterLayers parses one layer of the document and constructs its
// capture stream. Combined injections found in the new layer are
// eagerly expanded, so the result may contain more than one layer.
func newIterLayers(
	source []byte,
	parentName string,
	h *Highlighter,
	injectionCallback InjectionCallback,
	config Configuration,
	depth int,
	ranges []syntax.Range,
) []*iterLayer {
	var result []*iterLayer
	var queue []highlightQueueItem
	for {
		tree, err := config.parser.Parse(source, ranges)
		if err != nil {
			h.logger.Warn("layer parse failed, content left unhighlighted",
				"language", config.languageName, "error", err)
		} else {
			// Process combined injections.
			if config.combinedInjectionsQuery != nil {
				injectionsByPatternIndex := make([]injectionItem, config.combinedInjectionsQuery.PatternCount())

				for _, match := range config.combinedInjectionsQuery.Matches(tree, source) {
					entry := &injectionsByPatternIndex[match.PatternIndex]
					languageName, contentNode, includeChildren := injectionForMatch(
						config, parentName,
						config.combinedInjectionsQuery.PatternProperties(match.PatternIndex),
						match.Captures, source)

					if languageName != "" {
						entry.languageName = languageName
					}
					if contentNode.Exists() {
						entry.nodes = append(entry.nodes, contentNode)
					}
					entry.includeChildren = includeChildren
				}

				for _, injection := range injectionsByPatternIndex {
					if injection.languageName == "" || len(injection.nodes) == 0 {
						continue
					}
					nextConfig := injectionCallback(injection.languageName)
					if nextConfig == nil {
						h.logger.Warn("no configuration for injected language",
							"language", injection.languageName)
						continue
					}
					nextRanges := intersectRanges(ranges, injection.nodes, injection.includeChildren)
					if len(nextRanges) == 0 {
						continue
					}
					if depth+1 > h.maxDepth {
						h.logger.Warn("injection depth limit reached, content truncated",
							"language", injection.languageName, "depth", depth+1)
						continue
					}
					queue = append(queue, highlightQueueItem{
						config: *nextConfig,
						depth:  depth + 1,
						ranges: nextRanges,
					})
				}
			}

			result = append(result, &iterLayer{
				config:     config,
				captures:   newCaptureStream(config.query.Matches(tree, source)),
				scopeStack: []*localScope{rootScope()},
				ranges:     ranges,
				depth:      depth,
			})
		}

		if len(queue) == 0 {
			break
		}

		next := queue[0]
		queue = queue[1:]

		config = next.config
		depth = next.depth
		ranges = next.ranges
	}

	return result
}

type iterLayer struct {
	config            Configuration
	captures          *captureStream
	highlightEndStack []uint
	scopeStack        []*localScope
	ranges            []syntax.Range
	depth             int
}

// sortKey returns the layer's next highlight boundary, or nil when the
// layer is exhausted.
func (l *iterLayer) sortKey() *sortKey {
	depth := -l.depth

	var nextStart *uint
	if ref, ok := l.captures.peek(); ok {
		startByte := ref.capture().Node.StartByte()
		nextStart = &startByte
	}

	var nextEnd *uint
	if len(l.highlightEndStack) > 0 {
		endByte := l.highlightEndStack[len(l.highlightEndStack)-1]
		nextEnd = &endByte
	}

	switch {
	case nextStart != nil && nextEnd != nil:
		if *nextStart < *nextEnd {
			return &sortKey{offset: *nextStart, start: true, depth: depth}
		}
		return &sortKey{offset: *nextEnd, start: false, depth: depth}
	case nextStart != nil:
		return &sortKey{offset: *nextStart, start: true, depth: depth}
	case nextEnd != nil:
		return &sortKey{offset: *nextEnd, start: false, depth: depth}
	default:
		return nil
	}
}

// injectionForMatch extracts the language name, content node and
// include-children flag from an injection match. The language is
// determined in priority order: the text of the @injection.language
// capture, an explicit injection.language directive, then the
// injection.self and injection.parent directives.
func injectionForMatch(config Configuration, parentName string, props []query.Property, captures []query.Capture, source []byte) (string, syntax.Node, bool) {
	var (
		languageName    string
		contentNode     syntax.Node
		includeChildren bool
	)

	if config.injectionContentCapture < 0 {
		return "", contentNode, false
	}

	for _, capture := range captures {
		switch capture.Index {
		case config.injectionLanguageCapture:
			languageName = capture.Node.Text(source)
		case config.injectionContentCapture:
			contentNode = capture.Node
		}
	}

	for _, prop := range props {
		switch prop.Key {
		case propInjectionLanguage:
			if languageName == "" {
				languageName = prop.Value
			}
		case propInjectionSelf:
			if languageName == "" {
				languageName = config.languageName
			}
		case propInjectionParent:
			if languageName == "" {
				languageName = parentName
			}
		case propInjectionIncludeChildren:
			includeChildren = true
		}
	}

	return languageName, contentNode, includeChildren
}

// intersectRanges computes the ranges to include when parsing an
// injection. This takes into account three things:
//   - parentRanges - The ranges must all fall within the *current* layer's ranges.
//   - nodes - Every injection takes place within a set of nodes. The injection ranges are the
//     ranges of those nodes.
//   - includesChildren - For some injections, the content nodes' children should be excluded
//     from the nested document, so that only the content nodes' *own* content is reparsed. For
//     other injections, the content nodes' entire ranges should be reparsed, including the ranges
//     of their children.
func intersectRanges(parentRanges []syntax.Range, nodes []syntax.Node, includesChildren bool) []syntax.Range {
	if len(parentRanges) == 0 {
		panic("layers are always constructed with non-empty ranges")
	}

	var result []syntax.Range

	parentRange := parentRanges[0]
	parentRanges = parentRanges[1:]

	for _, node := range nodes {
		precedingRange := syntax.Range{
			EndByte:  node.StartByte(),
			EndPoint: node.StartPoint(),
		}
		followingRange := syntax.Range{
			StartByte:  node.EndByte(),
			StartPoint: node.EndPoint(),
			EndByte:    syntax.MaxByte,
			EndPoint:   syntax.Point{Row: ^uint(0), Column: ^uint(0)},
		}

		var excludedRanges []syntax.Range
		if !includesChildren {
			for _, child := range node.Children() {
				excludedRanges = append(excludedRanges, child.Range())
			}
		}
		excludedRanges = append(excludedRanges, followingRange)

		for _, excludedRange := range excludedRanges {
			r := syntax.Range{
				StartByte:  precedingRange.EndByte,
				StartPoint: precedingRange.EndPoint,
				EndByte:    excludedRange.StartByte,
				EndPoint:   excludedRange.StartPoint,
			}
			precedingRange = excludedRange

			if r.EndByte < parentRange.StartByte {
				continue
			}

			for parentRange.StartByte <= r.EndByte {
				if parentRange.EndByte > r.StartByte {
					if r.StartByte < parentRange.StartByte {
						r.StartByte = parentRange.StartByte
						r.StartPoint = parentRange.StartPoint
					}

					if parentRange.EndByte < r.EndByte {
						if r.StartByte < parentRange.EndByte {
							result = append(result, syntax.Range{
								StartByte:  r.StartByte,
								StartPoint: r.StartPoint,
								EndByte:    parentRange.EndByte,
								EndPoint:   parentRange.EndPoint,
							})
						}
						r.StartByte = parentRange.EndByte
						r.StartPoint = parentRange.EndPoint
					} else {
						if r.StartByte < r.EndByte {
							result = append(result, r)
						}
						break
					}
				}

				if len(parentRanges) > 0 {
					parentRange = parentRanges[0]
					parentRanges = parentRanges[1:]
				} else {
					return result
				}
			}
		}
	}

	return result
}
