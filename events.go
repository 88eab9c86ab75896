package treelight

// Highlight is an index into the list of recognized highlight names
// passed to [Configuration.Configure].
type Highlight uint

// DefaultHighlight marks text that no configured highlight applies to.
const DefaultHighlight = Highlight(^uint(0))

// Event is a single step in rendering a highlighted document.
// Possible implementations are:
// - [EventLayerStart]
// - [EventLayerEnd]
// - [EventHighlightStart]
// - [EventHighlightEnd]
// - [EventSource]
type Event interface {
	highlightEvent()
}

// EventSource is emitted for a run of source code between highlight
// boundaries.
type EventSource struct {
	StartByte uint
	EndByte   uint
}

func (EventSource) highlightEvent() {}

// EventLayerStart is emitted when a language injection layer starts.
type EventLayerStart struct {
	// LanguageName is the name of the language being injected.
	LanguageName string
}

func (EventLayerStart) highlightEvent() {}

// EventLayerEnd is emitted when a language injection layer ends.
type EventLayerEnd struct{}

func (EventLayerEnd) highlightEvent() {}

// EventHighlightStart is emitted when a highlighted region starts.
type EventHighlightStart struct {
	// Highlight is the resolved highlight of the region.
	Highlight Highlight
}

func (EventHighlightStart) highlightEvent() {}

// EventHighlightEnd is emitted when the most recent highlighted region
// ends.
type EventHighlightEnd struct{}

func (EventHighlightEnd) highlightEvent() {}
