package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTags is returned when a tags section has no tag after trimming.
	ErrEmptyTags = errors.New("parser: empty tags")

	// ErrUnknownDefType is returned for a def section whose type attribute
	// is neither absent, "file" nor "image_url".
	ErrUnknownDefType = errors.New("parser: unknown def type")

	// ErrUnknownSection is returned for a concept section with an
	// unrecognised name.
	ErrUnknownSection = errors.New("parser: unknown section")

	// ErrUnsupportedFormat is returned when no parser handles a file format.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrMalformedDocument is returned when a definition file does not have
	// the expected map/concept structure.
	ErrMalformedDocument = errors.New("parser: malformed document")
)

// ParseError locates a failure while turning a definition into a concept.
// It always aborts the whole load.
type ParseError struct {
	File    string
	Concept string // primary name of the concept being parsed
	Section string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("%s: concept %q: %v", e.File, e.Concept, e.Err)
	}
	return fmt.Sprintf("%s: concept %q: section %q: %v", e.File, e.Concept, e.Section, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
