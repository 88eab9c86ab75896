package treelight

import (
	"context"
	"fmt"
	"slices"

	"github.com/treelight/treelight/syntax"
)

type highlightRange struct {
	start uint
	end   uint
	depth int
}

// iterator merges the highlight boundaries of all layers into one
// ordered, well-nested event stream covering the whole document.
type iterator struct {
	ctx                context.Context
	source             []byte
	languageName       string
	byteOffset         uint
	highlighter        *Highlighter
	injectionCallback  InjectionCallback
	layers             []*iterLayer
	nextEvents         []Event
	lastHighlightRange *highlightRange
	lastLayer          *iterLayer
}

// emitEvents emits the source run up to offset before the given events,
// so that every byte of the document is covered exactly once.
func (i *iterator) emitEvents(offset uint, events ...Event) (Event, error) {
	var result Event
	if i.byteOffset < offset {
		result = EventSource{
			StartByte: i.byteOffset,
			EndByte:   offset,
		}
		i.byteOffset = offset
		i.nextEvents = append(i.nextEvents, events...)
	} else {
		if len(events) > 1 {
			i.nextEvents = append(i.nextEvents, events[1:]...)
		}
		if len(events) > 0 {
			result = events[0]
		}
	}
	i.sortLayers()
	return result, nil
}

func (i *iterator) next() (Event, error) {
main:
	for {
		if len(i.nextEvents) > 0 {
			event := i.nextEvents[0]
			i.nextEvents = i.nextEvents[1:]
			return event, nil
		}

		// check for cancellation
		select {
		case <-i.ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrCancelled, i.ctx.Err())
		default:
		}

		// If none of the layers have any more highlight boundaries, terminate.
		if len(i.layers) == 0 {
			if i.byteOffset < uint(len(i.source)) {
				event := EventSource{
					StartByte: i.byteOffset,
					EndByte:   uint(len(i.source)),
				}
				i.byteOffset = uint(len(i.source))
				return event, nil
			}
			return nil, nil
		}

		// Get the next capture from whichever layer has the earliest
		// highlight boundary.
		layer := i.layers[0]
		if layer != i.lastLayer {
			var events []Event
			if i.lastLayer != nil {
				events = append(events, EventLayerEnd{})
			}
			i.lastLayer = layer

			return i.emitEvents(i.byteOffset, append(events, EventLayerStart{
				LanguageName: layer.config.languageName,
			})...)
		}

		var nextCaptureRange syntax.Range
		if nextRef, ok := layer.captures.peek(); ok {
			nextCaptureRange = nextRef.capture().Node.Range()

			// If any previous highlight ends before this node starts, then before
			// processing this capture, emit the source code up until the end of the
			// previous highlight, and an end event for that highlight.
			if len(layer.highlightEndStack) > 0 {
				endByte := layer.highlightEndStack[len(layer.highlightEndStack)-1]
				if endByte <= nextCaptureRange.StartByte {
					layer.highlightEndStack = layer.highlightEndStack[:len(layer.highlightEndStack)-1]
					return i.emitEvents(endByte, EventHighlightEnd{})
				}
			}
		} else {
			// If there are no more captures, then emit any remaining highlight end events.
			// And if there are none of those, then just advance to the end of the document.
			if len(layer.highlightEndStack) > 0 {
				endByte := layer.highlightEndStack[len(layer.highlightEndStack)-1]
				layer.highlightEndStack = layer.highlightEndStack[:len(layer.highlightEndStack)-1]
				return i.emitEvents(endByte, EventHighlightEnd{})
			}
			return i.emitEvents(uint(len(i.source)))
		}

		ref, _ := layer.captures.next()
		match := ref.match
		capture := ref.capture()

		// If this capture represents an injection, then process the injection.
		if match.patternIndex < layer.config.localsPatternIndex {
			languageName, contentNode, includeChildren := injectionForMatch(
				layer.config, i.languageName,
				layer.config.query.PatternProperties(match.patternIndex),
				match.captures, i.source)

			// Explicitly remove this match so that none of its other captures
			// will remain in the stream of captures.
			match.remove()

			// If a language is found with the given name, then add a new
			// language layer to the highlighted document.
			if languageName != "" && contentNode.Exists() {
				newConfig := i.injectionCallback(languageName)
				if newConfig == nil {
					i.highlighter.logger.Warn("no configuration for injected language",
						"language", languageName)
				} else if layer.depth+1 > i.highlighter.maxDepth {
					i.highlighter.logger.Warn("injection depth limit reached, content truncated",
						"language", languageName, "depth", layer.depth+1)
				} else {
					ranges := intersectRanges(layer.ranges, []syntax.Node{contentNode}, includeChildren)
					if len(ranges) > 0 {
						newLayers := newIterLayers(i.source, i.languageName, i.highlighter,
							i.injectionCallback, *newConfig, layer.depth+1, ranges)
						for _, newLayer := range newLayers {
							i.insertLayer(newLayer)
						}
					}
				}
			}

			i.sortLayers()
			continue main
		}

		// Remove from the local scope stack any local scopes that have
		// already ended.
		for nextCaptureRange.StartByte > layer.scopeStack[len(layer.scopeStack)-1].rng.EndByte {
			layer.scopeStack = layer.scopeStack[:len(layer.scopeStack)-1]
		}

		// If this capture is for tracking local variables, then process the
		// local variable info.
		var referenceHighlight *Highlight
		var definition *localDef
		for match.patternIndex < layer.config.highlightsPatternIndex {
			switch capture.Index {
			case layer.config.localScopeCapture:
				// If the node represents a local scope, push a new local scope
				// onto the scope stack.
				definition = nil
				scope := &localScope{
					inherits: true,
					rng:      nextCaptureRange,
				}
				for _, prop := range layer.config.query.PatternProperties(match.patternIndex) {
					if prop.Key == propLocalScopeInherits {
						scope.inherits = prop.Value == "" || prop.Value == "true"
					}
				}
				layer.scopeStack = append(layer.scopeStack, scope)

			case layer.config.localDefCapture:
				// If the node represents a definition, add a new definition to
				// the local scope at the top of the scope stack.
				referenceHighlight = nil
				definition = nil
				scope := layer.scopeStack[len(layer.scopeStack)-1]

				var valueRange syntax.Range
				for _, matchCapture := range match.captures {
					if matchCapture.Index == layer.config.localDefValueCapture {
						valueRange = matchCapture.Node.Range()
					}
				}

				if uint(len(i.source)) >= nextCaptureRange.EndByte {
					definition = &localDef{
						name:       string(i.source[nextCaptureRange.StartByte:nextCaptureRange.EndByte]),
						valueRange: valueRange,
					}
					scope.defs = append(scope.defs, definition)
				}

			case layer.config.localRefCapture:
				// If the node represents a reference, then try to find the
				// corresponding definition in the scope stack, innermost
				// scope first, newest definition first.
				if definition != nil {
					break
				}
				if uint(len(i.source)) >= nextCaptureRange.EndByte {
					name := string(i.source[nextCaptureRange.StartByte:nextCaptureRange.EndByte])
					for _, scope := range slices.Backward(layer.scopeStack) {
						var found *localDef
						for _, def := range slices.Backward(scope.defs) {
							if def.name == name && nextCaptureRange.StartByte >= def.valueRange.EndByte {
								found = def
								break
							}
						}
						if found != nil {
							referenceHighlight = found.highlight
							break
						}
						if !scope.inherits {
							break
						}
					}
				}
			}

			// Continue processing any additional matches for the same node.
			if nextRef, ok := layer.captures.peek(); ok {
				if nextRef.capture().Node.Equal(capture.Node) {
					ref, _ = layer.captures.next()
					match = ref.match
					capture = ref.capture()
					continue
				}
			}

			i.sortLayers()
			continue main
		}

		// Otherwise, this capture must represent a highlight.
		// If this exact range has already been highlighted by an earlier
		// pattern, or by a different layer, then skip over this one.
		if i.lastHighlightRange != nil {
			lastRange := *i.lastHighlightRange
			if nextCaptureRange.StartByte == lastRange.start && nextCaptureRange.EndByte == lastRange.end && layer.depth < lastRange.depth {
				i.sortLayers()
				continue main
			}
		}

		// Once a highlighting pattern is found for the current node, keep
		// iterating over any later highlighting patterns that also match
		// this node and set the match to it. Captures for a given node are
		// ordered by pattern index, so these subsequent captures are
		// guaranteed to be for highlighting, not injections or locals.
		for {
			nextRef, ok := layer.captures.peek()
			if !ok || !nextRef.capture().Node.Equal(capture.Node) {
				break
			}

			followingRef, _ := layer.captures.next()
			// If the current node was found to be a local variable, then
			// ignore the following match if it's a highlighting pattern
			// that is disabled for local variables.
			if (definition != nil || referenceHighlight != nil) && layer.config.nonLocalVariablePatterns[followingRef.match.patternIndex] {
				continue
			}

			match.remove()
			match = followingRef.match
			capture = followingRef.capture()
		}

		currentHighlight := layer.config.highlightIndices[capture.Index]

		// If this node represents a local definition, then store the
		// current highlight value on the local scope entry representing
		// this node, so later references can repeat it.
		if definition != nil {
			definition.highlight = currentHighlight
		}

		// Emit a highlight start event and push the node's end position
		// onto the stack.
		highlight := referenceHighlight
		if highlight == nil {
			highlight = currentHighlight
		}
		if highlight != nil {
			i.lastHighlightRange = &highlightRange{
				start: nextCaptureRange.StartByte,
				end:   nextCaptureRange.EndByte,
				depth: layer.depth,
			}
			layer.highlightEndStack = append(layer.highlightEndStack, nextCaptureRange.EndByte)
			return i.emitEvents(nextCaptureRange.StartByte, EventHighlightStart{
				Highlight: *highlight,
			})
		}

		i.sortLayers()
	}
}

// sortLayers moves the layer with the earliest next boundary to the
// front, dropping exhausted layers.
func (i *iterator) sortLayers() {
	for len(i.layers) > 0 {
		key := i.layers[0].sortKey()
		if key != nil {
			var n int
			for n+1 < len(i.layers) {
				nextKey := i.layers[n+1].sortKey()
				if nextKey != nil && nextKey.lessThan(*key) {
					n++
					continue
				}
				break
			}
			if n > 0 {
				front := i.layers[0]
				copy(i.layers[:n], i.layers[1:n+1])
				i.layers[n] = front
			}
			break
		}
		i.layers = i.layers[1:]
	}
}

func (i *iterator) insertLayer(layer *iterLayer) {
	key := layer.sortKey()
	if key == nil {
		return
	}
	n := 1
	for n < len(i.layers) {
		keyN := i.layers[n].sortKey()
		if keyN != nil {
			if keyN.greaterThan(*key) {
				i.layers = slices.Insert(i.layers, n, layer)
				return
			}
			n++
		} else {
			i.layers = slices.Delete(i.layers, n, n+1)
		}
	}
	i.layers = append(i.layers, layer)
}
