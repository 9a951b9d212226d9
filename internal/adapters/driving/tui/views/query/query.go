// Package query provides the question and results view for the TUI.
package query

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/clause/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

// View represents the query view with input, passages list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.HitList
	statusbar *status.Bar

	retrieval driving.RetrievalService
	sessionID string
	opts      domain.RetrievalOptions
	ctx       context.Context

	result     *domain.RetrievalResult
	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a question, false = navigating passages
}

// NewView creates a query view bound to one session.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retrieval driving.RetrievalService,
	sessionID string,
	opts domain.RetrievalOptions,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetDynamic(opts.DynamicK)

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewHitList(s),
		statusbar:  bar,
		retrieval:  retrieval,
		sessionID:  sessionID,
		opts:       opts,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context used for retrieval calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.SessionInfoLoaded:
		if msg.Err == nil && msg.Info != nil {
			v.statusbar.SetSession(fmt.Sprintf("%d chunks, %d documents",
				msg.Info.ChunksIndexed, msg.Info.Documents))
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusInput {
		return v.handleInputKey(msg)
	}
	return v.handleResultsKey(msg)
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		// Esc with results on screen returns to them; otherwise it quits.
		if v.list.Count() > 0 {
			v.focusInput = false
			v.input.Blur()
			v.statusbar.SetState(status.StateResults)
			return v, nil
		}
		return v, func() tea.Msg { return messages.Quit{} }

	case tea.KeyEnter:
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.statusbar.SetState(status.StateSearching)
		v.statusbar.SetMessage("")
		v.focusInput = false
		v.input.Blur()
		return v, v.performQuery(question)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleResultsKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Open):
		hit := v.list.SelectedHit()
		if hit == nil {
			return v, nil
		}
		selected := messages.HitSelected{Hit: *hit}
		if v.result != nil {
			selected.Query = v.result.Query
		}
		return v, func() tea.Msg { return selected }

	case keymap.Matches(msg.String(), v.keymap.NewQuery):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()

	case keymap.Matches(msg.String(), v.keymap.ToggleDynamic):
		v.opts.DynamicK = !v.opts.DynamicK
		v.statusbar.SetDynamic(v.opts.DynamicK)
		if v.result == nil {
			return v, nil
		}
		v.statusbar.SetState(status.StateSearching)
		return v, v.performQuery(v.result.Query)

	case keymap.Matches(msg.String(), v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }

	case keymap.Matches(msg.String(), v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }

	case keymap.Matches(msg.String(), v.keymap.Back):
		v.focusInput = true
		return v, v.input.Focus()
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// performQuery returns a command that runs retrieval in the background.
func (v *View) performQuery(question string) tea.Cmd {
	ctx, retrieval, sessionID, opts := v.ctx, v.retrieval, v.sessionID, v.opts
	return func() tea.Msg {
		if retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		result, err := retrieval.Retrieve(ctx, sessionID, question, opts)
		return messages.QueryCompleted{Result: result, Err: err}
	}
}

func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.result = msg.Result
	var hits []domain.RetrievalHit
	if msg.Result != nil {
		hits = msg.Result.Hits
	}
	v.list.SetHits(hits)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(len(hits))
	if len(hits) == 0 {
		v.statusbar.SetMessage("No relevant passages")
	}

	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
	v.focusInput = true
	v.input.Focus()
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("Clause"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.result != nil && len(v.result.RewrittenQueries) > 1 {
		sections = append(sections, v.renderQueries(), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderQueries() string {
	lines := make([]string, 0, len(v.result.RewrittenQueries))
	for _, q := range v.result.RewrittenQueries {
		lines = append(lines, v.styles.Muted.Render("  · "+q))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// Header, input, rewritten queries and status bar.
	v.list.SetDimensions(width, height-12)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the text in the input.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the input text.
func (v *View) SetQuery(q string) {
	v.input.SetValue(q)
}

// Result returns the last retrieval result.
func (v *View) Result() *domain.RetrievalResult {
	return v.result
}

// Hits returns the passages currently listed.
func (v *View) Hits() []domain.RetrievalHit {
	return v.list.Hits()
}

// SelectedIndex returns the index of the selected passage.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Options returns the retrieval options used for the next query.
func (v *View) Options() domain.RetrievalOptions {
	return v.opts
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}
