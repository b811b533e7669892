package source

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Factory builds a source for a local file of a supported format.
type Factory func(path string, opts ...Option) (Source, error)

// formatRegistry maps a MIME type to the factory handling it. The
// registry is populated by init functions at startup; an absent entry
// is a normal "unsupported format" error, never a runtime failure.
var formatRegistry = map[string]Factory{}

// Register adds a factory for a MIME type. Later registrations for
// the same type win, so applications can override the built-ins.
func Register(mimeType string, factory Factory) {
	formatRegistry[mimeType] = factory
}

// SupportedFormats returns the registered MIME types.
func SupportedFormats() []string {
	formats := make([]string, 0, len(formatRegistry))
	for mimeType := range formatRegistry {
		formats = append(formats, mimeType)
	}
	return formats
}

// ForFile detects the file's MIME type from its content and builds a
// source through the registry.
func ForFile(path string, opts ...Option) (Source, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detecting content type of %s: %w", path, err)
	}

	for candidate := mtype; candidate != nil; candidate = candidate.Parent() {
		if factory, ok := formatRegistry[baseMime(candidate)]; ok {
			return factory(path, opts...)
		}
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, path, mtype.String())
}

// supportedFile reports whether the registry can handle the file.
func supportedFile(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for candidate := mtype; candidate != nil; candidate = candidate.Parent() {
		if _, ok := formatRegistry[baseMime(candidate)]; ok {
			return true
		}
	}
	return false
}

// baseMime strips parameters such as "; charset=utf-8".
func baseMime(m *mimetype.MIME) string {
	full := m.String()
	if i := strings.IndexByte(full, ';'); i >= 0 {
		return full[:i]
	}
	return full
}
