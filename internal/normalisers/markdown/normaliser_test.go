package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

func normalise(t *testing.T, content string) *domain.ParsedDocument {
	t.Helper()
	doc, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "/contracts/supply_agreement.md",
		MIMEType: "text/markdown",
		Content:  []byte(content),
	})
	require.NoError(t, err)
	return doc
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	assert.Equal(t, []string{"text/markdown", "text/x-markdown"}, normaliser.SupportedMIMETypes())
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_Structure(t *testing.T) {
	content := `# Supply Agreement

## 1. Payment

The Buyer shall pay **all invoices** within
thirty days of receipt. See [Schedule 2](#schedule-2).

- Late payments accrue interest.
- Interest is ` + "`4%`" + ` above base rate.

---

> Quoted notice text.

` + "```" + `
code is ignored
` + "```" + `
`
	doc := normalise(t, content)

	assert.Equal(t, "Supply Agreement", doc.Title)
	assert.Equal(t, []domain.Paragraph{
		{Text: "Supply Agreement", IsHeading: true},
		{Text: "1. Payment", IsHeading: true},
		{Text: "The Buyer shall pay all invoices within thirty days of receipt. See Schedule 2."},
		{Text: "Late payments accrue interest."},
		{Text: "Interest is 4% above base rate."},
		{Text: "Quoted notice text."},
	}, doc.Paragraphs)
	assert.Equal(t, "markdown", doc.Metadata["format"])
}

func TestNormalise_Tables(t *testing.T) {
	content := `Fees are set out below.

| Service | Fee |
|:--------|----:|
| Support | 100 |
| Hosting | 250 |

After the table.`
	doc := normalise(t, content)

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, [][]string{
		{"Service", "Fee"},
		{"Support", "100"},
		{"Hosting", "250"},
	}, doc.Tables[0].Rows)
	assert.Equal(t, []domain.Paragraph{
		{Text: "Fees are set out below."},
		{Text: "After the table."},
	}, doc.Paragraphs)
}

func TestNormalise_SetextHeadings(t *testing.T) {
	doc := normalise(t, "Recitals\n========\n\nWhereas the parties agree.\n\nTerm\n----\nOne year.")

	assert.Equal(t, "Recitals", doc.Title)
	assert.Equal(t, []domain.Paragraph{
		{Text: "Recitals", IsHeading: true},
		{Text: "Whereas the parties agree."},
		{Text: "Term", IsHeading: true},
		{Text: "One year."},
	}, doc.Paragraphs)
}

func TestNormalise_TitleFallback(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		metadata map[string]any
		want     string
	}{
		{name: "first H1", content: "## Intro\n\n# Main Title", want: "Main Title"},
		{name: "filename when no H1", content: "## Second Level\n\nNo H1.", want: "supply agreement"},
		{name: "metadata wins", content: "# Heading", metadata: map[string]any{"title": "Given"}, want: "Given"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New().Normalise(context.Background(), &domain.RawDocument{
				URI:      "/contracts/supply_agreement.md",
				Content:  []byte(tt.content),
				Metadata: tt.metadata,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func TestNormalise_Empty(t *testing.T) {
	doc := normalise(t, "")
	assert.True(t, doc.IsEmpty())
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
