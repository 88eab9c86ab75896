package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/treelight/treelight"
	"github.com/treelight/treelight/syntax"
)

// treeFileParser satisfies syntax.Parser with a tree decoded from a JSON
// dump. The tree was produced by an external parser, so included ranges
// are ignored and the full tree is returned as-is.
type treeFileParser struct {
	tree *syntax.Tree
}

func (p treeFileParser) Parse(source []byte, includedRanges []syntax.Range) (*syntax.Tree, error) {
	return p.tree, nil
}

// load reads the source file, the JSON tree dump and the query directory,
// and builds a configuration named after the query directory.
func load() (*treelight.Configuration, []byte, error) {
	if flagTree == "" || flagSource == "" || flagQueries == "" {
		return nil, nil, fmt.Errorf("--tree, --source and --queries are required")
	}

	source, err := os.ReadFile(flagSource)
	if err != nil {
		return nil, nil, fmt.Errorf("reading source: %w", err)
	}

	treeFile, err := os.Open(flagTree)
	if err != nil {
		return nil, nil, fmt.Errorf("opening tree dump: %w", err)
	}
	defer treeFile.Close()

	tree, err := syntax.DecodeJSON(treeFile, source)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding tree dump: %w", err)
	}

	highlights, err := os.ReadFile(filepath.Join(flagQueries, "highlights.scm"))
	if err != nil {
		return nil, nil, fmt.Errorf("reading highlights query: %w", err)
	}
	injections := readOptionalQuery(filepath.Join(flagQueries, "injections.scm"))
	locals := readOptionalQuery(filepath.Join(flagQueries, "locals.scm"))

	languageName := filepath.Base(filepath.Clean(flagQueries))
	cfg, err := treelight.NewConfiguration(treeFileParser{tree: tree}, languageName, highlights, injections, locals)
	if err != nil {
		return nil, nil, fmt.Errorf("building configuration: %w", err)
	}

	return cfg, source, nil
}

func readOptionalQuery(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}
