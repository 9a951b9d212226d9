package domain

import (
	"strings"
	"time"
)

// ChunkType classifies how a chunk was produced.
type ChunkType string

// Available chunk types.
const (
	// ChunkTypeParagraph is a chunk built from one or more paragraphs.
	ChunkTypeParagraph ChunkType = "paragraph"

	// ChunkTypeTable is a chunk holding one flattened table.
	ChunkTypeTable ChunkType = "table"
)

// Chunk metadata keys.
const (
	MetaChunkType   = "chunk_type"
	MetaTableIndex  = "table_index"
	MetaRowCount    = "row_count"
	MetaColumnCount = "column_count"
	MetaSource      = "source"
)

// Paragraph is one block of text from a parsed document.
type Paragraph struct {
	// Text is the cleaned paragraph text.
	Text string

	// IsHeading is true when the parser identified a heading style.
	// The chunker also applies its own structural heuristic.
	IsHeading bool
}

// Table is a grid of cell text. Rows may have differing lengths.
type Table struct {
	Rows [][]string
}

// Flatten renders the table as a single string: cells joined by " | ",
// rows joined by a space.
func (t Table) Flatten() string {
	rows := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, strings.Join(row, " | "))
	}
	return strings.Join(rows, " ")
}

// ColumnCount returns the width of the widest row.
func (t Table) ColumnCount() int {
	n := 0
	for _, row := range t.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// ParsedDocument is the output of a normaliser and the input of a chunker.
type ParsedDocument struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location, when known.
	URI string

	// Title is the human-readable title, when known.
	Title string

	// Paragraphs in document order.
	Paragraphs []Paragraph

	// Tables in document order.
	Tables []Table

	// Metadata contains parser-specific key-value pairs.
	Metadata map[string]any
}

// IsEmpty reports whether the document has nothing to chunk.
func (d *ParsedDocument) IsEmpty() bool {
	return d == nil || (len(d.Paragraphs) == 0 && len(d.Tables) == 0)
}

// Chunk represents a retrievable unit within a session.
// Chunks are immutable once appended to a session's chunk store.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the ParsedDocument that produced this chunk.
	DocumentID string

	// Index is the ordinal position within the document's chunk stream.
	Index int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the vector representation, when computed.
	Embedding []float32

	// EmbeddingModel names the model that produced Embedding.
	EmbeddingModel string

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time
}

// Type returns the chunk_type metadata value.
func (c *Chunk) Type() ChunkType {
	if c.Metadata == nil {
		return ""
	}
	switch v := c.Metadata[MetaChunkType].(type) {
	case ChunkType:
		return v
	case string:
		return ChunkType(v)
	default:
		return ""
	}
}

// IngestResult summarises one ingestion call.
type IngestResult struct {
	// SessionID is the session the chunks were appended to.
	SessionID string

	// DocumentID identifies the ingested document.
	DocumentID string

	// ChunkCount is the number of chunks appended.
	ChunkCount int

	// FirstPosition is the session position of the first appended chunk.
	FirstPosition int

	// TotalChunks is the session size after the append.
	TotalChunks int

	// Duration is the wall time spent chunking, embedding and writing.
	Duration time.Duration
}
