package domain

import "fmt"

// ContentType classifies the overall character of a document.
// It drives the position-weighting curve and the narrative retrieval boost.
// The classification is supplied once per document by an external classifier
// and is read-only input to the extraction core.
type ContentType int

const (
	// ContentUnknown is used when no classification is available.
	ContentUnknown ContentType = iota

	// ContentNarrative covers continuous prose: fiction, memoirs, long-form
	// journalism. Positional importance is flatter and retrieval needs
	// proportionally more context.
	ContentNarrative

	// ContentExpository covers structured non-fiction: reports, papers,
	// documentation. Theses and findings cluster at the front and back.
	ContentExpository
)

// String returns the canonical name of the content type.
func (c ContentType) String() string {
	switch c {
	case ContentNarrative:
		return "narrative"
	case ContentExpository:
		return "expository"
	default:
		return "unknown"
	}
}

// ParseContentType converts a string to a ContentType.
// Unrecognised values return an error rather than silently mapping to unknown.
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "narrative":
		return ContentNarrative, nil
	case "expository":
		return ContentExpository, nil
	case "unknown", "":
		return ContentUnknown, nil
	default:
		return ContentUnknown, fmt.Errorf("%w: content type %q", ErrInvalidInput, s)
	}
}
