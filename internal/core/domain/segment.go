package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SegmentType identifies the structural kind of a segment.
// Each type has a distinct citation prefix so that citations remain
// unambiguous across segment kinds.
type SegmentType int

const (
	// SegmentSentence is a single prose sentence.
	SegmentSentence SegmentType = iota

	// SegmentListItem is one item of a bulleted or numbered list.
	SegmentListItem

	// SegmentTableRow is a single row of a table.
	SegmentTableRow

	// SegmentCodeBlock is a fenced or indented code block.
	SegmentCodeBlock

	// SegmentQuote is a block quotation.
	SegmentQuote

	// SegmentHeading is a section heading.
	SegmentHeading

	// SegmentCaption is a figure or table caption.
	SegmentCaption
)

// CitationPrefix returns the single-letter prefix used in citation strings.
func (t SegmentType) CitationPrefix() string {
	switch t {
	case SegmentListItem:
		return "L"
	case SegmentTableRow:
		return "T"
	case SegmentCodeBlock:
		return "C"
	case SegmentQuote:
		return "Q"
	case SegmentHeading:
		return "H"
	case SegmentCaption:
		return "F"
	default:
		return "S"
	}
}

// String returns the canonical name of the segment type.
func (t SegmentType) String() string {
	switch t {
	case SegmentListItem:
		return "list_item"
	case SegmentTableRow:
		return "table_row"
	case SegmentCodeBlock:
		return "code_block"
	case SegmentQuote:
		return "quote"
	case SegmentHeading:
		return "heading"
	case SegmentCaption:
		return "caption"
	default:
		return "sentence"
	}
}

// Segment is the atomic citable unit of a document: a sentence, list item,
// table row, code block, quote, heading or caption.
//
// A Segment carries identity and structural position only. All computed
// values (embedding, salience, query similarity) live in a separate ScoreSet
// attached per extraction pass, so re-extraction never mutates a Segment
// that an earlier pass handed out.
type Segment struct {
	// ID is the stable identifier: documentID, citation prefix and the
	// zero-padded document-order index. Never changes after construction.
	ID string

	// DocumentID links to the source document.
	DocumentID string

	// ContentHash is a truncated SHA-256 of the whitespace-normalised text.
	// It is stable across re-embedding and re-chunking, so a citation that
	// carries the hash survives re-indexing.
	ContentHash string

	// Type is the structural kind of this segment.
	Type SegmentType

	// Index is the zero-based position in document order. Unique and
	// monotonic within a document.
	Index int

	// Text is the segment content.
	Text string

	// CharStart is the character offset of the segment start in the
	// original document.
	CharStart int

	// CharEnd is the character offset one past the segment end.
	CharEnd int

	// Heading is the nearest enclosing section heading text, if any.
	Heading string

	// HeadingPath is the full heading trail from the document root,
	// outermost first.
	HeadingPath []string

	// HeadingLevel is the level of the enclosing heading (1 = top level).
	// Zero when the segment is outside any section.
	HeadingLevel int

	// PageNumber is the 1-based page the segment appears on, when the
	// source format has pages. Nil otherwise.
	PageNumber *int

	// LineNumber is the 1-based line the segment starts on, when known.
	LineNumber *int
}

// NewSegment constructs a Segment from a parsed span. The ID and content
// hash are derived here and are immutable afterwards.
func NewSegment(documentID string, index int, span Span) Segment {
	hash := HashContent(span.Text)
	prefix := span.Type.CitationPrefix()

	return Segment{
		ID:           fmt.Sprintf("%s:%s%04d", documentID, prefix, index),
		DocumentID:   documentID,
		ContentHash:  hash,
		Type:         span.Type,
		Index:        index,
		Text:         span.Text,
		CharStart:    span.CharStart,
		CharEnd:      span.CharEnd,
		Heading:      span.Heading,
		HeadingPath:  span.HeadingPath,
		HeadingLevel: span.HeadingLevel,
		PageNumber:   span.PageNumber,
		LineNumber:   span.LineNumber,
	}
}

// Citation returns the citation string handed to the synthesis stage,
// in the form "[S12]". Stable citation plus matching content hash means
// the same segment, even after re-indexing.
func (s Segment) Citation() string {
	return fmt.Sprintf("[%s%d]", s.Type.CitationPrefix(), s.Index+1)
}

// Length returns the character length of the segment text.
func (s Segment) Length() int {
	return len(s.Text)
}

// IsHeading reports whether the segment is a heading.
func (s Segment) IsHeading() bool {
	return s.Type == SegmentHeading
}

// HashContent computes the content hash for a piece of segment text.
// Whitespace is collapsed before hashing so that re-chunking which only
// shifts formatting does not change the hash.
func HashContent(text string) string {
	normalised := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])[:16]
}

// Span is a parsed text span handed to the extraction core by the upstream
// document parser, in document order.
type Span struct {
	// Type is the structural kind of the span.
	Type SegmentType

	// Text is the span content.
	Text string

	// CharStart is the character offset of the span start.
	CharStart int

	// CharEnd is the character offset one past the span end.
	CharEnd int

	// Heading is the nearest enclosing heading text, if any.
	Heading string

	// HeadingPath is the full heading trail, outermost first.
	HeadingPath []string

	// HeadingLevel is the enclosing heading level (1 = top level).
	HeadingLevel int

	// PageNumber is the 1-based page, when the format has pages.
	PageNumber *int

	// LineNumber is the 1-based starting line, when known.
	LineNumber *int
}
