package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/treelight/treelight"
)

var flagTheme string

// theme maps highlight names to CSS colors and optional class names.
type theme struct {
	Colors  map[string]string `toml:"colors"`
	Classes map[string]string `toml:"classes"`
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the document as HTML",
	Args:  cobra.NoArgs,
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&flagTheme, "theme", "", "TOML theme file mapping highlight names to colors or classes")
}

func loadTheme(path string) (theme, error) {
	var t theme
	if path == "" {
		return t, nil
	}
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return t, fmt.Errorf("loading theme: %w", err)
	}
	return t, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, source, err := load()
	if err != nil {
		return err
	}

	t, err := loadTheme(flagTheme)
	if err != nil {
		return err
	}

	recognized := recognizedCaptures(cfg)
	cfg.Configure(recognized)

	attributes := func(h treelight.Highlight, languageName string) []byte {
		if h == treelight.DefaultHighlight || int(h) >= len(recognized) {
			return nil
		}
		name := recognized[h]
		if class, ok := t.Classes[name]; ok {
			return fmt.Appendf(nil, "class=%q", class)
		}
		if color, ok := t.Colors[name]; ok {
			return fmt.Appendf(nil, "style=%q", "color: "+color)
		}
		return fmt.Appendf(nil, "class=%q", name)
	}

	highlighter := treelight.New()
	events := highlighter.Highlight(context.Background(), *cfg, source, nil)

	fmt.Println("<pre>")
	if err := treelight.Render(os.Stdout, events, source, attributes); err != nil {
		return err
	}
	fmt.Println("</pre>")
	return nil
}
