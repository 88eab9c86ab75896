/*
Package treelight resolves syntax highlighting over parsed syntax trees.

It matches highlight queries against a tree, tracks locally defined
variables so that definitions and references share a highlight, follows
language injections into embedded documents, and emits the result as an
ordered stream of events covering every byte of the source.

Parsing itself is delegated to a [syntax.Parser], so any parser that can
produce a [syntax.Tree] can be highlighted.

# Usage

To highlight a document you first need a [Configuration] built from the
language's highlights, injections and locals queries.
Next call [Configuration.Configure] with the capture names your theme
recognizes.
After that create a [Highlighter] and call [Highlighter.Highlight], which
returns an [iter.Seq2] of events to iterate over.

	cfg, err := NewConfiguration(parser, "go", highlightsQuery, injectionQuery, localsQuery)
	if err != nil {
		log.Fatal(err)
	}

	cfg.Configure([]string{
		"variable",
		"function",
		"string",
		"keyword",
		"comment",
	})

	highlighter := New()
	events := highlighter.Highlight(context.Background(), *cfg, source, func(name string) *Configuration {
		return nil
	})

	for event, err := range events {
		if err != nil {
			log.Fatal(err)
		}

		switch e := event.(type) {
		case EventLayerStart:
			log.Printf("layer start: %s", e.LanguageName)
		case EventLayerEnd:
			log.Printf("layer end")
		case EventHighlightStart:
			log.Printf("highlight start: %d", e.Highlight)
		case EventHighlightEnd:
			log.Printf("highlight end")
		case EventSource:
			log.Printf("source: %d-%d", e.StartByte, e.EndByte)
		}
	}

See [Runs] for a flattened, non-nested view of the same stream, and
[Render] for HTML output.
*/
package treelight
