// Package markdown provides a Normaliser for Markdown documents. Headings
// become heading paragraphs and pipe tables become tables.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Pre-compiled patterns for block and inline syntax.
var (
	atxHeading     = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.*?)\s*#*\s*$`)
	setextH1       = regexp.MustCompile(`^\s{0,3}=+\s*$`)
	setextH2       = regexp.MustCompile(`^\s{0,3}-+\s*$`)
	thematicBreak  = regexp.MustCompile(`^\s{0,3}([-*_]\s*){3,}$`)
	listItem       = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	blockquote     = regexp.MustCompile(`^\s*>\s?`)
	tableSeparator = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
	images         = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	links          = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	inlineCode     = regexp.MustCompile("`([^`]*)`")
	emphasis       = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
)

// Normalise converts a Markdown document into paragraphs and tables.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	p := &parser{}
	p.parse(string(raw.Content))

	title := textclean.Title(raw.Metadata, "")
	if title == "" {
		title = p.title
	}
	if title == "" {
		title = textclean.Title(nil, raw.URI)
	}

	return &domain.ParsedDocument{
		URI:        raw.URI,
		Title:      title,
		Paragraphs: p.paragraphs,
		Tables:     p.tables,
		Metadata:   textclean.Metadata(raw.Metadata, raw.MIMEType, "markdown"),
	}, nil
}

type parser struct {
	title      string
	paragraphs []domain.Paragraph
	tables     []domain.Table

	lines []string
	rows  [][]string
}

func (p *parser) parse(content string) {
	inFence := false
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			p.flush()
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if strings.HasPrefix(trimmed, "|") {
			p.flushParagraph()
			if !tableSeparator.MatchString(trimmed) {
				p.rows = append(p.rows, splitRow(trimmed))
			}
			continue
		}
		p.flushTable()

		switch {
		case trimmed == "":
			p.flushParagraph()
		case len(p.lines) == 1 && setextH1.MatchString(line):
			p.heading(p.lines[0], 1)
		case len(p.lines) == 1 && setextH2.MatchString(line):
			p.heading(p.lines[0], 2)
		case thematicBreak.MatchString(line):
			p.flushParagraph()
		case atxHeading.MatchString(line):
			m := atxHeading.FindStringSubmatch(line)
			p.flushParagraph()
			p.heading(m[2], len(m[1]))
		case listItem.MatchString(line):
			p.flushParagraph()
			p.lines = append(p.lines, listItem.ReplaceAllString(line, ""))
		default:
			p.lines = append(p.lines, blockquote.ReplaceAllString(line, ""))
		}
	}
	p.flush()
}

func (p *parser) heading(text string, level int) {
	p.lines = nil
	text = textclean.Clean(inline(text))
	if text == "" {
		return
	}
	if level == 1 && p.title == "" {
		p.title = text
	}
	p.paragraphs = append(p.paragraphs, domain.Paragraph{Text: text, IsHeading: true})
}

func (p *parser) flush() {
	p.flushParagraph()
	p.flushTable()
}

func (p *parser) flushParagraph() {
	if len(p.lines) == 0 {
		return
	}
	text := textclean.Clean(inline(strings.Join(p.lines, " ")))
	p.lines = nil
	if text != "" {
		p.paragraphs = append(p.paragraphs, domain.Paragraph{Text: text})
	}
}

func (p *parser) flushTable() {
	if len(p.rows) == 0 {
		return
	}
	p.tables = append(p.tables, domain.Table{Rows: p.rows})
	p.rows = nil
}

// splitRow splits a pipe table row into cleaned cells.
func splitRow(line string) []string {
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	cells := strings.Split(line, "|")
	row := make([]string, len(cells))
	for i, cell := range cells {
		row[i] = textclean.Clean(inline(cell))
	}
	return row
}

// inline strips inline Markdown syntax, keeping the visible text.
func inline(text string) string {
	text = images.ReplaceAllString(text, "")
	text = links.ReplaceAllString(text, "$1")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = strings.NewReplacer("**", "", "__", "").Replace(text)
	return emphasis.ReplaceAllString(text, "$1")
}
