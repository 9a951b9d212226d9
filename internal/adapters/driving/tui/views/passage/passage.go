// Package passage provides the full-text view of one retrieved passage.
package passage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/clause/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/clause/internal/core/domain"
)

// reservedLines covers the title, details, separator and help footer.
const reservedLines = 8

// View shows a passage in a scrollable viewport.
type View struct {
	styles   *styles.Styles
	viewport viewport.Model

	hit    *domain.RetrievalHit
	query  string
	width  int
	height int
	ready  bool
}

// NewView creates an empty passage view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:   s,
		viewport: viewport.New(80, 24-reservedLines),
		width:    80,
		height:   24,
	}
}

// SetHit shows hit. query is the question it answered.
func (v *View) SetHit(hit domain.RetrievalHit, query string) {
	v.hit = &hit
	v.query = query
	v.refresh()
	v.viewport.GotoTop()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles scrolling and navigation back to the results.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "backspace":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewQuery}
			}
		case "g", "home":
			v.viewport.GotoTop()
			return v, nil
		case "G", "end":
			v.viewport.GotoBottom()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the passage.
func (v *View) View() string {
	if v.hit == nil {
		return v.styles.Muted.Render("(No passage selected)") + "\n\n" + v.renderHelp()
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Chunk %d", v.hit.Position)))
	b.WriteString("  ")
	b.WriteString(v.styles.Score(v.hit.Score))
	b.WriteString("\n")
	b.WriteString(v.renderDetails())
	b.WriteString(strings.Repeat("─", max(10, min(v.width-4, 60))))
	b.WriteString("\n")
	b.WriteString(v.viewport.View())
	b.WriteString("\n")
	if v.viewport.TotalLineCount() > v.viewport.Height {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%.0f%%]", v.viewport.ScrollPercent()*100)))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderDetails() string {
	var lines []string
	if v.hit.MatchedQuery != "" && v.hit.MatchedQuery != v.query {
		lines = append(lines, "Matched: "+v.hit.MatchedQuery)
	}
	if v.hit.DocumentID != "" {
		lines = append(lines, "Document: "+v.hit.DocumentID)
	}
	if meta := formatMetadata(v.hit.Metadata); meta != "" {
		lines = append(lines, meta)
	}
	if len(lines) == 0 {
		return ""
	}
	return v.styles.Muted.Render(strings.Join(lines, "\n")) + "\n"
}

// formatMetadata renders metadata as sorted key=value pairs.
func formatMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, "  ")
}

func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back")
}

func (v *View) refresh() {
	if v.hit == nil {
		v.viewport.SetContent("")
		return
	}
	v.viewport.SetContent(v.styles.PassageText(v.hit.Content, v.width-4))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.viewport.Width = width
	v.viewport.Height = max(1, height-reservedLines)
	v.refresh()
}

// Hit returns the passage being shown.
func (v *View) Hit() *domain.RetrievalHit {
	return v.hit
}

// ScrollOffset returns the viewport's vertical offset.
func (v *View) ScrollOffset() int {
	return v.viewport.YOffset
}
