package treelight

import "errors"

var (
	// ErrCancelled is returned by the event stream when the context is
	// cancelled before the document has been fully highlighted.
	ErrCancelled = errors.New("highlighting cancelled")

	// ErrInvalidLanguage is returned when a configuration cannot be
	// built for a language.
	ErrInvalidLanguage = errors.New("invalid language")
)
