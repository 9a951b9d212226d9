// Package tables turns parsed tables into chunks.
package tables

import (
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/normalisers/textclean"
)

// Chunks builds one chunk per table, numbering them from firstIndex.
// Tables that flatten to blank text are skipped; table_index still
// refers to the table's position in the input.
func Chunks(documentID string, tables []domain.Table, firstIndex int, now time.Time) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(tables))
	index := firstIndex
	for i, table := range tables {
		content := textclean.Clean(table.Flatten())
		if content == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Index:      index,
			Content:    content,
			Metadata: map[string]any{
				domain.MetaChunkType:   string(domain.ChunkTypeTable),
				domain.MetaTableIndex:  i,
				domain.MetaRowCount:    len(table.Rows),
				domain.MetaColumnCount: table.ColumnCount(),
			},
			CreatedAt: now,
		})
		index++
	}
	return chunks
}
