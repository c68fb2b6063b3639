package conceptgraph

import "errors"

var (
	// ErrParsingFailed is returned when a definition file cannot be turned
	// into concepts. The whole load is aborted.
	ErrParsingFailed = errors.New("conceptgraph: parsing failed")

	// ErrUnsupportedFormat is returned for a definition file with no
	// registered parser.
	ErrUnsupportedFormat = errors.New("conceptgraph: unsupported definition format")

	// ErrNoDefinitions is returned when the given paths contain no
	// definition files.
	ErrNoDefinitions = errors.New("conceptgraph: no definition files found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("conceptgraph: invalid configuration")

	// ErrNoBuild is returned by queries before any build has been saved.
	ErrNoBuild = errors.New("conceptgraph: no build saved")

	// ErrConceptNotFound is returned when no concept of the latest build has
	// the requested name.
	ErrConceptNotFound = errors.New("conceptgraph: concept not found")

	// ErrImageSearchDisabled is returned by SearchImages when image search is
	// not enabled in the configuration.
	ErrImageSearchDisabled = errors.New("conceptgraph: image search disabled")
)
