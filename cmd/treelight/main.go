package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagTree    string
	flagSource  string
	flagQueries string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "treelight",
	Short:         "Resolve syntax highlighting over parsed syntax trees",
	Long:          "Treelight matches highlight queries against a syntax tree dump, tracks local variable scopes and language injections, and emits highlight spans.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTree, "tree", "", "path to the JSON syntax tree dump")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "path to the source file")
	rootCmd.PersistentFlags().StringVar(&flagQueries, "queries", "", "directory containing highlights.scm, injections.scm and locals.scm")

	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(renderCmd)
}
