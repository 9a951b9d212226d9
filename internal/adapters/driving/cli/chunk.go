package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// chunkPreviewRunes bounds chunk content in text output.
const chunkPreviewRunes = 400

var chunkCmd = &cobra.Command{
	Use:   "chunk <file|pattern>...",
	Short: "Show how documents are split into chunks",
	Long: `Normalise and chunk documents without indexing them.

Arguments may be file paths or glob patterns, including "**" for recursive
matches. Supported formats are plain text, Markdown and HTML.

Examples:
  clause chunk contract.md
  clause chunk "contracts/**/*.html" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().Bool("json", false, "print chunks as JSON")
	chunkCmd.Flags().Bool("full", false, "print full chunk content")
	rootCmd.AddCommand(chunkCmd)
}

// chunkFileOutput is the JSON form of one chunked file.
type chunkFileOutput struct {
	Path   string        `json:"path"`
	Title  string        `json:"title"`
	Chunks []chunkOutput `json:"chunks"`
}

type chunkOutput struct {
	Index   int            `json:"index"`
	Type    string         `json:"type"`
	Words   int            `json:"words"`
	Content string         `json:"content"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	full, _ := cmd.Flags().GetBool("full")

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	e, err := requireEngine(cmd)
	if err != nil {
		return err
	}

	outputs := make([]chunkFileOutput, 0, len(paths))
	for _, path := range paths {
		out, err := chunkFile(cmd, e, path)
		if err != nil {
			return err
		}
		outputs = append(outputs, *out)
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	}

	for _, out := range outputs {
		fmt.Fprintf(w, "%s %s\n", headingStyle(out.Path), dimStyle(fmt.Sprintf("(%d chunks)", len(out.Chunks))))
		if out.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", out.Title)
		}
		for _, c := range out.Chunks {
			content := c.Content
			if !full {
				content = truncate(content, chunkPreviewRunes)
			}
			fmt.Fprintf(w, "\n[%d] %s, %d words\n%s\n", c.Index, c.Type, c.Words, indent(content))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func chunkFile(cmd *cobra.Command, e *Engine, path string) (*chunkFileOutput, error) {
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	n, err := e.Normalisers.Get(raw.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err := n.Normalise(cmd.Context(), raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", path, err)
	}
	if doc.ID == "" {
		doc.ID = filepath.Base(path)
	}

	chunks, err := e.Chunker.Chunk(cmd.Context(), doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}

	out := &chunkFileOutput{
		Path:   path,
		Title:  doc.Title,
		Chunks: make([]chunkOutput, 0, len(chunks)),
	}
	for i := range chunks {
		c := &chunks[i]
		out.Chunks = append(out.Chunks, chunkOutput{
			Index:   c.Index,
			Type:    chunkTypeLabel(c.Type()),
			Words:   len(strings.Fields(c.Content)),
			Content: c.Content,
			Meta:    c.Metadata,
		})
	}
	return out, nil
}

// chunkTypeLabel falls back to "paragraph" for chunks without a type.
func chunkTypeLabel(t domain.ChunkType) string {
	if t == "" {
		return string(domain.ChunkTypeParagraph)
	}
	return string(t)
}
