package treelight

import (
	"context"
	"iter"
	"log/slog"

	"github.com/treelight/treelight/syntax"
)

// InjectionCallback is called when a language injection is found to load the
// configuration for the injected language. Returning nil leaves the injected
// content unhighlighted.
type InjectionCallback func(languageName string) *Configuration

const defaultMaxInjectionDepth = 32

// Highlighter drives the highlighting of source documents. A single
// Highlighter may be reused across documents and is safe for concurrent use.
type Highlighter struct {
	logger   *slog.Logger
	maxDepth int
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithLogger sets the logger used to report recoverable highlighting
// problems, such as unknown injected languages.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Highlighter) {
		h.logger = logger
	}
}

// WithMaxInjectionDepth limits how deeply language injections may nest.
// Content below the limit is emitted unhighlighted.
func WithMaxInjectionDepth(depth int) Option {
	return func(h *Highlighter) {
		if depth > 0 {
			h.maxDepth = depth
		}
	}
}

// New creates a Highlighter.
func New(opts ...Option) *Highlighter {
	h := &Highlighter{
		logger:   slog.Default(),
		maxDepth: defaultMaxInjectionDepth,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Highlight highlights the given source code using the given configuration.
// The source code is expected to be UTF-8 encoded. Events are produced
// lazily as the returned sequence is consumed.
func (h *Highlighter) Highlight(ctx context.Context, cfg Configuration, source []byte, injectionCallback InjectionCallback) iter.Seq2[Event, error] {
	if injectionCallback == nil {
		injectionCallback = func(string) *Configuration { return nil }
	}

	layers := newIterLayers(source, "", h, injectionCallback, cfg, 0, []syntax.Range{syntax.FullRange()})

	i := &iterator{
		ctx:               ctx,
		source:            source,
		languageName:      cfg.languageName,
		highlighter:       h,
		injectionCallback: injectionCallback,
		layers:            layers,
	}
	i.sortLayers()

	return func(yield func(Event, error) bool) {
		for {
			event, err := i.next()
			if err != nil {
				yield(nil, err)
				return
			}

			if event == nil {
				// no more events
				return
			}

			if !yield(event, nil) {
				return
			}
		}
	}
}
