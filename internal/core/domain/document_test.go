package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Flatten(t *testing.T) {
	table := Table{Rows: [][]string{
		{"Party", "Role"},
		{"Acme Ltd", "Supplier"},
		{"Globex"},
	}}

	assert.Equal(t, "Party | Role Acme Ltd | Supplier Globex", table.Flatten())
	assert.Equal(t, 2, table.ColumnCount())
}

func TestTable_FlattenEmpty(t *testing.T) {
	assert.Equal(t, "", Table{}.Flatten())
	assert.Equal(t, 0, Table{}.ColumnCount())
}

func TestParsedDocument_IsEmpty(t *testing.T) {
	var nilDoc *ParsedDocument
	assert.True(t, nilDoc.IsEmpty())
	assert.True(t, (&ParsedDocument{}).IsEmpty())
	assert.False(t, (&ParsedDocument{Paragraphs: []Paragraph{{Text: "x"}}}).IsEmpty())
	assert.False(t, (&ParsedDocument{Tables: []Table{{}}}).IsEmpty())
}

func TestChunk_Type(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		expected ChunkType
	}{
		{"nil metadata", nil, ""},
		{"typed value", map[string]any{MetaChunkType: ChunkTypeTable}, ChunkTypeTable},
		{"string value", map[string]any{MetaChunkType: "paragraph"}, ChunkTypeParagraph},
		{"wrong type", map[string]any{MetaChunkType: 3}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Chunk{Metadata: tt.metadata}
			assert.Equal(t, tt.expected, c.Type())
		})
	}
}
