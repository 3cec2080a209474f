// Package text provides the span source for plain text and Markdown
// files. It is deliberately line-oriented: headings, list items, table
// rows, fenced code and quotes become structural spans, everything else
// is split into sentences.
package text

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.SpanSource = (*Source)(nil)

// Source parses plain text and Markdown into typed spans.
type Source struct{}

// New creates a text span source.
func New() *Source {
	return &Source{}
}

// Spans reads the file at uri and parses it into spans in document order.
func (s *Source) Spans(_ context.Context, uri string) ([]domain.Span, error) {
	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}
	return Parse(string(data)), nil
}

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemRe  = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.*)$`)
	tableSepRe  = regexp.MustCompile(`^\s*\|?[\s:|-]+\|?\s*$`)
	quoteRe     = regexp.MustCompile(`^\s*>\s?(.*)$`)
	fenceRe     = regexp.MustCompile("^\\s*```")
	sentenceEnd = regexp.MustCompile(`[.!?]["')\]]*(\s+|$)`)
)

// line is one raw input line with its absolute offset.
type line struct {
	text   string
	start  int
	number int
}

// parser accumulates spans while walking lines.
type parser struct {
	raw     string
	spans   []domain.Span
	heading string
	path    []string
	level   int
}

// Parse splits raw text into typed spans with exact character offsets.
func Parse(raw string) []domain.Span {
	p := &parser{raw: raw}

	lines := splitLines(raw)
	for i := 0; i < len(lines); {
		ln := lines[i]
		trimmed := strings.TrimSpace(ln.text)

		switch {
		case trimmed == "":
			i++
		case fenceRe.MatchString(ln.text):
			i = p.codeBlock(lines, i)
		case headingRe.MatchString(trimmed):
			p.headingLine(ln, trimmed)
			i++
		case quoteRe.MatchString(ln.text):
			i = p.quote(lines, i)
		case listItemRe.MatchString(ln.text):
			p.listItem(ln)
			i++
		case isTableRow(trimmed):
			p.tableRow(ln, trimmed)
			i++
		default:
			i = p.paragraph(lines, i)
		}
	}

	return p.spans
}

// splitLines indexes the raw text by line, keeping absolute offsets.
func splitLines(raw string) []line {
	var lines []line
	start := 0
	number := 1
	for {
		idx := strings.IndexByte(raw[start:], '\n')
		if idx < 0 {
			if start < len(raw) {
				lines = append(lines, line{text: raw[start:], start: start, number: number})
			}
			return lines
		}
		lines = append(lines, line{text: raw[start : start+idx], start: start, number: number})
		start += idx + 1
		number++
	}
}

func (p *parser) add(span domain.Span) {
	if strings.TrimSpace(span.Text) == "" {
		return
	}
	p.spans = append(p.spans, span)
}

// span builds a span with the current heading context attached.
func (p *parser) span(t domain.SegmentType, text string, start, end, lineNo int) domain.Span {
	path := make([]string, len(p.path))
	copy(path, p.path)

	n := lineNo
	return domain.Span{
		Type:         t,
		Text:         collapseWhitespace(text),
		CharStart:    start,
		CharEnd:      end,
		Heading:      p.heading,
		HeadingPath:  path,
		HeadingLevel: p.level,
		LineNumber:   &n,
	}
}

func (p *parser) headingLine(ln line, trimmed string) {
	m := headingRe.FindStringSubmatch(trimmed)
	level := len(m[1])
	title := strings.TrimSpace(m[2])

	// Maintain the heading trail: a level-N heading truncates deeper
	// levels.
	if level <= len(p.path) {
		p.path = p.path[:level-1]
	}
	p.path = append(p.path, title)
	p.heading = title
	p.level = level

	span := p.span(domain.SegmentHeading, title, ln.start, ln.start+len(ln.text), ln.number)
	p.add(span)
}

func (p *parser) codeBlock(lines []line, i int) int {
	opening := lines[i]
	j := i + 1
	for j < len(lines) && !fenceRe.MatchString(lines[j].text) {
		j++
	}

	var body []string
	for k := i + 1; k < j && k < len(lines); k++ {
		body = append(body, lines[k].text)
	}

	end := opening.start + len(opening.text)
	if j < len(lines) {
		end = lines[j].start + len(lines[j].text)
	} else if len(lines) > 0 {
		last := lines[len(lines)-1]
		end = last.start + len(last.text)
	}

	if len(body) > 0 {
		span := p.span(domain.SegmentCodeBlock, strings.Join(body, "\n"),
			opening.start, end, opening.number)
		// Code layout is significant: keep the raw text.
		span.Text = strings.TrimRight(strings.Join(body, "\n"), " \t")
		p.add(span)
	}

	if j < len(lines) {
		return j + 1
	}
	return j
}

func (p *parser) quote(lines []line, i int) int {
	first := lines[i]
	var parts []string
	j := i
	for j < len(lines) && quoteRe.MatchString(lines[j].text) {
		m := quoteRe.FindStringSubmatch(lines[j].text)
		parts = append(parts, m[1])
		j++
	}

	last := lines[j-1]
	span := p.span(domain.SegmentQuote, strings.Join(parts, " "),
		first.start, last.start+len(last.text), first.number)
	p.add(span)
	return j
}

func (p *parser) listItem(ln line) {
	m := listItemRe.FindStringSubmatch(ln.text)
	span := p.span(domain.SegmentListItem, m[1], ln.start, ln.start+len(ln.text), ln.number)
	p.add(span)
}

func (p *parser) tableRow(ln line, trimmed string) {
	if tableSepRe.MatchString(trimmed) {
		return // |---|---| separator rows carry no content
	}

	cells := strings.Split(strings.Trim(trimmed, "|"), "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	text := strings.Join(cells, " | ")

	span := p.span(domain.SegmentTableRow, text, ln.start, ln.start+len(ln.text), ln.number)
	p.add(span)
}

// paragraph consumes consecutive non-structural lines and splits them
// into sentence spans with offsets into the raw text.
func (p *parser) paragraph(lines []line, i int) int {
	first := lines[i]
	j := i
	for j < len(lines) {
		trimmed := strings.TrimSpace(lines[j].text)
		if trimmed == "" || fenceRe.MatchString(lines[j].text) ||
			headingRe.MatchString(trimmed) || quoteRe.MatchString(lines[j].text) ||
			listItemRe.MatchString(lines[j].text) || isTableRow(trimmed) {
			break
		}
		j++
	}

	last := lines[j-1]
	regionStart := first.start
	region := p.raw[regionStart : last.start+len(last.text)]

	for _, sent := range splitSentences(region) {
		span := p.span(domain.SegmentSentence, sent.text,
			regionStart+sent.start, regionStart+sent.end, first.number)
		// Refine the line number to the sentence start.
		n := first.number + strings.Count(region[:sent.start], "\n")
		span.LineNumber = &n
		p.add(span)
	}

	return j
}

type sentence struct {
	text  string
	start int
	end   int
}

// splitSentences splits a paragraph on terminal punctuation followed by
// whitespace. Offsets are relative to the paragraph region.
func splitSentences(region string) []sentence {
	var out []sentence
	start := 0

	for _, loc := range sentenceEnd.FindAllStringIndex(region, -1) {
		end := loc[0] + 1 // include the terminator, not trailing quotes/space
		for end < loc[1] && !unicode.IsSpace(rune(region[end])) {
			end++
		}
		if s, ok := trimSentence(region, start, end); ok {
			out = append(out, s)
		}
		start = loc[1]
	}

	if s, ok := trimSentence(region, start, len(region)); ok {
		out = append(out, s)
	}
	return out
}

// trimSentence trims whitespace from a candidate sentence, adjusting
// offsets, and reports whether anything remains.
func trimSentence(region string, start, end int) (sentence, bool) {
	for start < end && unicode.IsSpace(rune(region[start])) {
		start++
	}
	for end > start && unicode.IsSpace(rune(region[end-1])) {
		end--
	}
	if start >= end {
		return sentence{}, false
	}
	return sentence{text: region[start:end], start: start, end: end}, true
}

// isTableRow reports whether a trimmed line looks like a Markdown table
// row.
func isTableRow(trimmed string) bool {
	return strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2
}

// collapseWhitespace folds runs of whitespace into single spaces.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
