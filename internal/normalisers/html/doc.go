// Package html provides a Normaliser implementation for HTML documents.
// It walks the parsed node tree, turning h1-h6 into heading paragraphs,
// block elements into paragraphs and table rows into tables. Scripts,
// styles and other non-content elements are dropped.
package html
