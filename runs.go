package treelight

import "iter"

// Run is a contiguous span of source text with the single highlight that
// applies to it. Runs never overlap and appear in document order.
type Run struct {
	StartByte uint
	EndByte   uint
	Highlight Highlight
	Language  string
}

// Runs flattens an event stream into a flat list of runs. Nested highlights
// are resolved to the innermost one, and bytes with no applicable highlight
// are reported with [DefaultHighlight]. Empty runs are omitted.
func Runs(events iter.Seq2[Event, error]) ([]Run, error) {
	var (
		runs           []Run
		highlightStack []Highlight
		languageStack  []string
	)

	for event, err := range events {
		if err != nil {
			return nil, err
		}

		switch e := event.(type) {
		case EventLayerStart:
			languageStack = append(languageStack, e.LanguageName)
		case EventLayerEnd:
			if len(languageStack) > 0 {
				languageStack = languageStack[:len(languageStack)-1]
			}
		case EventHighlightStart:
			highlightStack = append(highlightStack, e.Highlight)
		case EventHighlightEnd:
			if len(highlightStack) > 0 {
				highlightStack = highlightStack[:len(highlightStack)-1]
			}
		case EventSource:
			if e.StartByte == e.EndByte {
				continue
			}
			run := Run{
				StartByte: e.StartByte,
				EndByte:   e.EndByte,
				Highlight: DefaultHighlight,
			}
			if len(highlightStack) > 0 {
				run.Highlight = highlightStack[len(highlightStack)-1]
			}
			if len(languageStack) > 0 {
				run.Language = languageStack[len(languageStack)-1]
			}
			runs = append(runs, run)
		}
	}

	return runs, nil
}
