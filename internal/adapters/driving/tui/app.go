package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/clause/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/views/passage"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/views/query"
	"github.com/custodia-labs/clause/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// queryView asks questions and lists passages.
	queryView *query.View

	// passageView shows one passage in full.
	passageView *passage.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingRetrievalService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		queryView:   query.NewView(s, km, ports.Retrieval, ports.SessionID, ports.Options),
		passageView: passage.NewView(s),
		currentView: messages.ViewQuery,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.queryView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("clause"),
		a.queryView.Init(),
		a.loadSessionInfo(),
	)
}

// loadSessionInfo fetches session statistics for the status bar.
func (a *App) loadSessionInfo() tea.Cmd {
	sessions, id, ctx := a.ports.Sessions, a.ports.SessionID, a.ctx
	if sessions == nil {
		return nil
	}
	return func() tea.Msg {
		info, err := sessions.Info(ctx, id)
		return messages.SessionInfoLoaded{Info: info, Err: err}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewQuery:
			a.queryView, cmd = a.queryView.Update(msg)
			a.err = a.queryView.Err()
		case messages.ViewPassage:
			a.passageView, cmd = a.passageView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc || msg.String() == "?" || msg.String() == "q" {
				a.currentView = messages.ViewQuery
			}
		}
		return a, cmd

	case messages.QueryCompleted:
		a.queryView, cmd = a.queryView.Update(msg)
		a.err = a.queryView.Err()
		return a, tea.Batch(cmd, a.loadSessionInfo())

	case messages.HitSelected:
		a.passageView.SetHit(msg.Hit, msg.Query)
		a.currentView = messages.ViewPassage
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.SessionInfoLoaded:
		a.queryView, cmd = a.queryView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.currentView = messages.ViewQuery
		a.queryView, cmd = a.queryView.Update(msg)
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewQuery:
		a.queryView, cmd = a.queryView.Update(msg)
	case messages.ViewPassage:
		a.passageView, cmd = a.passageView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewPassage:
		return a.passageView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.queryView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Question:
  (type)      Enter a question
  enter       Retrieve passages
  esc         Back to passages, or quit

Passages:
  j/k, ↑/↓    Navigate passages
  enter       Open passage
  n, /        New question
  d           Toggle dynamic k and re-run
  ?           Help
  q           Quit

Passage:
  ↑/↓, PgUp/PgDn  Scroll
  esc             Back to passages

` + a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Query returns the text in the query input.
func (a *App) Query() string {
	return a.queryView.Query()
}

// Hits returns the passages currently listed.
func (a *App) Hits() []domain.RetrievalHit {
	return a.queryView.Hits()
}

// SelectedHit returns the passage shown in the passage view.
func (a *App) SelectedHit() *domain.RetrievalHit {
	return a.passageView.Hit()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.queryView.SetDimensions(width, height)
	a.passageView.SetDimensions(width, height)
}
