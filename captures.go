package treelight

import (
	"sort"

	"github.com/treelight/treelight/query"
)

// matchState wraps a query match so that consuming one of its captures
// can remove the rest of the match from the stream, the way injection
// matches are dropped once processed.
type matchState struct {
	patternIndex int
	captures     []query.Capture
	removed      bool
}

func (m *matchState) remove() { m.removed = true }

// captureRef is one capture of one match within the stream.
type captureRef struct {
	match        *matchState
	captureIndex int
}

func (r captureRef) capture() query.Capture {
	return r.match.captures[r.captureIndex]
}

// captureStream flattens a layer's matches into the boundary-ordered
// capture sequence the event iterator consumes: ordered by start byte,
// enclosing nodes before contained ones, then by pattern index. The
// ordering guarantees that all captures of a given node are adjacent.
type captureStream struct {
	entries []captureRef
	pos     int
}

func newCaptureStream(matches []query.Match) *captureStream {
	states := make([]matchState, len(matches))
	var entries []captureRef
	for i, m := range matches {
		states[i] = matchState{patternIndex: m.PatternIndex, captures: m.Captures}
		for ci := range m.Captures {
			entries = append(entries, captureRef{match: &states[i], captureIndex: ci})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].capture().Node, entries[j].capture().Node
		if a.StartByte() != b.StartByte() {
			return a.StartByte() < b.StartByte()
		}
		if a.EndByte() != b.EndByte() {
			return a.EndByte() > b.EndByte()
		}
		return entries[i].match.patternIndex < entries[j].match.patternIndex
	})

	return &captureStream{entries: entries}
}

// peek returns the next live capture without consuming it.
func (s *captureStream) peek() (captureRef, bool) {
	for s.pos < len(s.entries) {
		ref := s.entries[s.pos]
		if ref.match.removed {
			s.pos++
			continue
		}
		return ref, true
	}
	return captureRef{}, false
}

// next consumes and returns the next live capture.
func (s *captureStream) next() (captureRef, bool) {
	ref, ok := s.peek()
	if ok {
		s.pos++
	}
	return ref, ok
}
