package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/treelight/treelight"
	"github.com/treelight/treelight/assert"
)

var flagCommentPrefixes string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check highlight assertions embedded in the source comments",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagCaptures, "captures", "", "comma-separated capture names to recognize (default: all named in the queries)")
	checkCmd.Flags().StringVar(&flagCommentPrefixes, "comment-prefixes", "//,#", "comma-separated comment markers that may carry assertions")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, source, err := load()
	if err != nil {
		return err
	}

	prefixes := strings.Split(flagCommentPrefixes, ",")
	assertions, err := assert.Parse(source, prefixes)
	if err != nil {
		return err
	}
	if len(assertions) == 0 {
		return fmt.Errorf("no assertions found in %s", flagSource)
	}

	recognized := recognizedCaptures(cfg)
	cfg.Configure(recognized)

	highlighter := treelight.New()
	events := highlighter.Highlight(context.Background(), *cfg, source, nil)
	runs, err := treelight.Runs(events)
	if err != nil {
		return err
	}

	failures := assert.Check(assertions, runs, recognized, source)
	for _, failure := range failures {
		fmt.Println(failure)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d assertions failed", len(failures), len(assertions))
	}

	fmt.Printf("%d assertions passed\n", len(assertions))
	return nil
}
