// Package styles holds the lipgloss styles shared by the TUI views.
package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Similarity bands used to colour scores.
const (
	StrongMatch float32 = 0.75
	FairMatch   float32 = 0.5
)

// Palette is the set of colours the TUI draws with.
type Palette struct {
	Accent  lipgloss.Color
	Heading lipgloss.Color
	Text    lipgloss.Color
	Dim     lipgloss.Color
	Error   lipgloss.Color
	Frame   lipgloss.Color
	Bar     lipgloss.Color

	// Score bands, strongest first.
	Strong lipgloss.Color
	Fair   lipgloss.Color
	Weak   lipgloss.Color
}

// DefaultPalette is a dark palette with ink-blue accents.
func DefaultPalette() Palette {
	return Palette{
		Accent:  lipgloss.Color("#2563EB"),
		Heading: lipgloss.Color("#D4A017"),
		Text:    lipgloss.Color("#E5E7EB"),
		Dim:     lipgloss.Color("#6B7280"),
		Error:   lipgloss.Color("#F87171"),
		Frame:   lipgloss.Color("#374151"),
		Bar:     lipgloss.Color("#0B1120"),
		Strong:  lipgloss.Color("#34D399"),
		Fair:    lipgloss.Color("#FBBF24"),
		Weak:    lipgloss.Color("#9CA3AF"),
	}
}

// Styles are the rendered styles for the query, passage and help views.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// Passage renders retrieved chunk text in the passage view.
	Passage lipgloss.Style

	strong lipgloss.Style
	fair   lipgloss.Style
	weak   lipgloss.Style
}

// New builds styles from p.
func New(p Palette) *Styles {
	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(p.Heading),
		Normal:   lipgloss.NewStyle().Foreground(p.Text),
		Muted:    lipgloss.NewStyle().Foreground(p.Dim),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(p.Text).Background(p.Accent),
		Error:    lipgloss.NewStyle().Foreground(p.Error),
		Help:     lipgloss.NewStyle().Foreground(p.Dim),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(p.Dim).
			Background(p.Bar).
			Padding(0, 1),

		Passage: lipgloss.NewStyle().Foreground(p.Text),

		strong: lipgloss.NewStyle().Bold(true).Foreground(p.Strong),
		fair:   lipgloss.NewStyle().Foreground(p.Fair),
		weak:   lipgloss.NewStyle().Foreground(p.Weak),
	}
}

// DefaultStyles returns styles built from DefaultPalette.
func DefaultStyles() *Styles {
	return New(DefaultPalette())
}

// ScoreStyle returns the style for a similarity score's band.
func (s *Styles) ScoreStyle(score float32) lipgloss.Style {
	switch {
	case score >= StrongMatch:
		return s.strong
	case score >= FairMatch:
		return s.fair
	default:
		return s.weak
	}
}

// Score renders score to three decimals in its band's colour.
func (s *Styles) Score(score float32) string {
	return s.ScoreStyle(score).Render(fmt.Sprintf("%.3f", score))
}

// PassageText wraps content to width for the passage viewport.
// Widths below 20 are raised to 20.
func (s *Styles) PassageText(content string, width int) string {
	return s.Passage.Width(max(20, width)).Render(content)
}
