// Package normalisers provides the normaliser registry and MIME type
// detection. Each subpackage implements the Normaliser interface for one
// document format and turns raw bytes into paragraphs and tables.
//
// NewDefaultRegistry wires the built-in plain text, Markdown and HTML
// normalisers.
package normalisers
