// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/clause/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/clause/internal/core/domain"
)

// linesPerHit is the rendered height of one hit.
const linesPerHit = 2

// HitList displays retrieved passages in a navigable list.
type HitList struct {
	hits     []domain.RetrievalHit
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewHitList creates an empty hit list.
func NewHitList(s *styles.Styles) *HitList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &HitList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the hit list.
func (h *HitList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (h *HitList) Update(msg tea.Msg) (*HitList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			h.MoveUp()
		case "down", "j":
			h.MoveDown()
		}
	}
	return h, nil
}

// View renders the visible window of hits around the selection.
func (h *HitList) View() string {
	if len(h.hits) == 0 {
		return h.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(h.hits)*linesPerHit+2)
	lines = append(lines, h.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(h.hits))), "")

	visible := max(1, (h.height-2)/linesPerHit)
	start := 0
	if h.selected >= visible {
		start = h.selected - visible + 1
	}
	end := min(start+visible, len(h.hits))

	for i := start; i < end; i++ {
		lines = append(lines, h.renderHit(i, &h.hits[i]))
	}

	return strings.Join(lines, "\n")
}

func (h *HitList) renderHit(index int, hit *domain.RetrievalHit) string {
	indicator := "  "
	if index == h.selected {
		indicator = "> "
	}

	label := fmt.Sprintf("%s%d. chunk %d", indicator, index+1, hit.Position)
	if t := hitType(hit); t != "" {
		label += " (" + t + ")"
	}
	var header string
	if index == h.selected {
		header = h.styles.Selected.Render(label+"  ") + " " + h.styles.Score(hit.Score)
	} else {
		header = h.styles.Normal.Render(label+"  ") + " " + h.styles.Muted.Render(fmt.Sprintf("%.3f", hit.Score))
	}

	preview := Preview(hit.Content, h.width-6)
	return header + "\n" + h.styles.Muted.Render("    "+preview)
}

func hitType(hit *domain.RetrievalHit) string {
	if hit.Metadata == nil {
		return ""
	}
	switch v := hit.Metadata[domain.MetaChunkType].(type) {
	case string:
		return v
	case domain.ChunkType:
		return string(v)
	}
	return ""
}

// Preview collapses whitespace in s and truncates it to width runes.
func Preview(s string, width int) string {
	width = max(20, width)
	flat := []rune(strings.Join(strings.Fields(s), " "))
	if len(flat) <= width {
		return string(flat)
	}
	return string(flat[:width-3]) + "..."
}

// SetHits replaces the list contents and resets the selection.
func (h *HitList) SetHits(hits []domain.RetrievalHit) {
	h.hits = hits
	h.selected = 0
}

// Hits returns the current hits.
func (h *HitList) Hits() []domain.RetrievalHit {
	return h.hits
}

// Selected returns the index of the selected hit.
func (h *HitList) Selected() int {
	return h.selected
}

// SetSelected sets the selected index when it is in range.
func (h *HitList) SetSelected(index int) {
	if index >= 0 && index < len(h.hits) {
		h.selected = index
	}
}

// SelectedHit returns the selected hit, or nil if the list is empty.
func (h *HitList) SelectedHit() *domain.RetrievalHit {
	if h.selected < 0 || h.selected >= len(h.hits) {
		return nil
	}
	return &h.hits[h.selected]
}

// MoveUp moves selection up.
func (h *HitList) MoveUp() {
	if h.selected > 0 {
		h.selected--
	}
}

// MoveDown moves selection down.
func (h *HitList) MoveDown() {
	if h.selected < len(h.hits)-1 {
		h.selected++
	}
}

// SetDimensions sets the component dimensions.
func (h *HitList) SetDimensions(width, height int) {
	h.width = width
	h.height = height
}

// Count returns the number of hits.
func (h *HitList) Count() int {
	return len(h.hits)
}

// IsEmpty returns whether the list is empty.
func (h *HitList) IsEmpty() bool {
	return len(h.hits) == 0
}
