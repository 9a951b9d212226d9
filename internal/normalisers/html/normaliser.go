package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML document into paragraphs and tables.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	root, err := html.Parse(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("parse html %q: %w", raw.URI, err)
	}

	w := &walker{}
	w.container(root, false)

	title := textclean.Title(raw.Metadata, "")
	if title == "" {
		title = findTitle(root)
	}
	if title == "" {
		title = textclean.Title(nil, raw.URI)
	}

	return &domain.ParsedDocument{
		URI:        raw.URI,
		Title:      title,
		Paragraphs: w.paragraphs,
		Tables:     w.tables,
		Metadata:   textclean.Metadata(raw.Metadata, raw.MIMEType, "html"),
	}, nil
}

// skipped elements carry no document text.
var skipped = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Svg: true, atom.Template: true, atom.Iframe: true, atom.Object: true,
}

// blocks start a new paragraph.
var blocks = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Main: true, atom.Article: true,
	atom.Section: true, atom.Header: true, atom.Footer: true, atom.Nav: true,
	atom.Aside: true, atom.Div: true, atom.P: true, atom.Blockquote: true,
	atom.Pre: true, atom.Address: true, atom.Ul: true, atom.Ol: true,
	atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Figure: true, atom.Figcaption: true, atom.Form: true, atom.Fieldset: true,
	atom.Details: true, atom.Summary: true, atom.Hr: true, atom.Table: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

func isHeading(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

type walker struct {
	paragraphs []domain.Paragraph
	tables     []domain.Table
}

// container groups runs of inline content between block children into
// paragraphs and descends into the blocks.
func (w *walker) container(n *html.Node, heading bool) {
	var buf strings.Builder
	flush := func() {
		if text := textclean.Clean(buf.String()); text != "" {
			w.paragraphs = append(w.paragraphs, domain.Paragraph{Text: text, IsHeading: heading})
		}
		buf.Reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode && c.Type != html.DocumentNode {
			inlineText(&buf, c)
			continue
		}
		switch {
		case skipped[c.DataAtom]:
		case c.DataAtom == atom.Table:
			flush()
			w.table(c)
		case isHeading(c.DataAtom):
			flush()
			w.container(c, true)
		case blocks[c.DataAtom]:
			flush()
			w.container(c, heading)
		default:
			inlineText(&buf, c)
		}
	}
	flush()
}

// table collects the rows of t, ignoring rows of nested tables.
func (w *walker) table(t *html.Node) {
	var rows [][]string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				if row := cells(c); row != nil {
					rows = append(rows, row)
				}
			case atom.Thead, atom.Tbody, atom.Tfoot:
				visit(c)
			case atom.Caption:
				var buf strings.Builder
				inlineText(&buf, c)
				if text := textclean.Clean(buf.String()); text != "" {
					w.paragraphs = append(w.paragraphs, domain.Paragraph{Text: text})
				}
			}
		}
	}
	visit(t)

	if len(rows) > 0 {
		w.tables = append(w.tables, domain.Table{Rows: rows})
	}
}

// cells returns the cleaned cell text of a row, or nil when every cell is blank.
func cells(tr *html.Node) []string {
	var row []string
	blank := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		var buf strings.Builder
		inlineText(&buf, c)
		text := textclean.Clean(buf.String())
		if text != "" {
			blank = false
		}
		row = append(row, text)
	}
	if blank {
		return nil
	}
	return row
}

// inlineText appends the visible text under n. Line breaks and block
// boundaries become spaces.
func inlineText(buf *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Br || blocks[n.DataAtom] || n.DataAtom == atom.Td || n.DataAtom == atom.Th {
			buf.WriteByte(' ')
		}
	case html.DocumentNode:
	default:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inlineText(buf, c)
	}
}

// findTitle returns the text of the first <title> element.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		var buf strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				buf.WriteString(c.Data)
			}
		}
		return textclean.Clean(buf.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
