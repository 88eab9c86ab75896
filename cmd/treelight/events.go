package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/treelight/treelight"
)

var (
	flagCaptures string
	flagRuns     bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the highlight event stream for a document",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&flagCaptures, "captures", "", "comma-separated capture names to recognize (default: all named in the queries)")
	eventsCmd.Flags().BoolVar(&flagRuns, "runs", false, "print flattened runs instead of raw events")
}

// recognizedCaptures returns the capture names the theme recognizes,
// either from --captures or every name the queries mention.
func recognizedCaptures(cfg *treelight.Configuration) []string {
	if flagCaptures == "" {
		return cfg.Names()
	}
	names := strings.Split(flagCaptures, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, source, err := load()
	if err != nil {
		return err
	}

	recognized := recognizedCaptures(cfg)
	cfg.Configure(recognized)

	highlighter := treelight.New()
	events := highlighter.Highlight(context.Background(), *cfg, source, nil)

	if flagRuns {
		runs, err := treelight.Runs(events)
		if err != nil {
			return err
		}
		for _, run := range runs {
			name := "(none)"
			if run.Highlight != treelight.DefaultHighlight && int(run.Highlight) < len(recognized) {
				name = recognized[run.Highlight]
			}
			fmt.Printf("%d-%d\t%s\t%q\n", run.StartByte, run.EndByte, name, source[run.StartByte:run.EndByte])
		}
		return nil
	}

	for event, err := range events {
		if err != nil {
			return err
		}
		switch e := event.(type) {
		case treelight.EventLayerStart:
			fmt.Printf("layer-start %s\n", e.LanguageName)
		case treelight.EventLayerEnd:
			fmt.Println("layer-end")
		case treelight.EventHighlightStart:
			name := "(default)"
			if e.Highlight != treelight.DefaultHighlight && int(e.Highlight) < len(recognized) {
				name = recognized[e.Highlight]
			}
			fmt.Printf("highlight-start %s\n", name)
		case treelight.EventHighlightEnd:
			fmt.Println("highlight-end")
		case treelight.EventSource:
			fmt.Printf("source %d-%d %q\n", e.StartByte, e.EndByte, source[e.StartByte:e.EndByte])
		}
	}

	return nil
}
