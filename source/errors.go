package source

import "errors"

var (
	// ErrUnsupportedFormat is returned when no source factory is
	// registered for a detected content format.
	ErrUnsupportedFormat = errors.New("unsupported content format")

	// ErrNotInitialized is returned when a source streams before Init.
	ErrNotInitialized = errors.New("source not initialized")
)
