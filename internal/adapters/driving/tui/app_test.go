package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/clause/internal/core/domain"
)

func testHits() []domain.RetrievalHit {
	return []domain.RetrievalHit{
		{Position: 2, Content: "Either party may terminate on 30 days notice.", Score: 0.88},
		{Position: 7, Content: "Termination for cause requires written notice.", Score: 0.71},
	}
}

func newTestApp(t *testing.T) (*App, *MockRetrievalService) {
	t.Helper()
	retrieval := &MockRetrievalService{
		RetrieveFunc: func(_ context.Context, _, query string, _ domain.RetrievalOptions) (*domain.RetrievalResult, error) {
			return &domain.RetrievalResult{Query: query, RewrittenQueries: []string{query}, Hits: testHits()}, nil
		},
	}
	app, err := NewApp(&Ports{
		Retrieval: retrieval,
		SessionID: "session-1",
		Options:   domain.RetrievalOptions{TopK: 5},
	})
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app, retrieval
}

func typeText(app *App, text string) {
	for _, r := range text {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// submit types text, presses enter and feeds the resulting message back.
func submit(t *testing.T, app *App, text string) {
	t.Helper()
	typeText(app, text)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())
}

func TestNewApp_Success(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, messages.ViewQuery, app.CurrentView())
	assert.True(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{SessionID: "s"})
	assert.ErrorIs(t, err, ErrMissingRetrievalService)
	assert.Nil(t, app)

	app, err = NewApp(nil)
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestApp_Init(t *testing.T) {
	app, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_ViewBeforeReady(t *testing.T) {
	app, err := NewApp(&Ports{Retrieval: &MockRetrievalService{}, SessionID: "s"})
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Retrieval: &MockRetrievalService{}, SessionID: "s"})
	require.NoError(t, err)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
}

func TestApp_TypingUpdatesQuery(t *testing.T) {
	app, _ := newTestApp(t)

	typeText(app, "notice")

	assert.Equal(t, "notice", app.Query())
}

func TestApp_SubmitRetrievesPassages(t *testing.T) {
	app, retrieval := newTestApp(t)
	var gotSession, gotQuery string
	var gotOpts domain.RetrievalOptions
	retrieval.RetrieveFunc = func(_ context.Context, sessionID, query string, opts domain.RetrievalOptions) (*domain.RetrievalResult, error) {
		gotSession, gotQuery, gotOpts = sessionID, query, opts
		return &domain.RetrievalResult{Query: query, Hits: testHits()}, nil
	}

	submit(t, app, "termination")

	assert.Equal(t, "session-1", gotSession)
	assert.Equal(t, "termination", gotQuery)
	assert.Equal(t, 5, gotOpts.TopK)
	assert.Len(t, app.Hits(), 2)
	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "Passages (2)")
}

func TestApp_RetrievalError(t *testing.T) {
	app, retrieval := newTestApp(t)
	retrieval.RetrieveFunc = func(context.Context, string, string, domain.RetrievalOptions) (*domain.RetrievalResult, error) {
		return nil, domain.ErrNotFound
	}

	submit(t, app, "anything")

	assert.ErrorIs(t, app.Err(), domain.ErrNotFound)
	assert.Contains(t, app.View(), "Error")
	assert.Empty(t, app.Hits())
}

func TestApp_OpenPassageAndBack(t *testing.T) {
	app, _ := newTestApp(t)
	submit(t, app, "termination")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewPassage, app.CurrentView())
	require.NotNil(t, app.SelectedHit())
	assert.Equal(t, 2, app.SelectedHit().Position)
	assert.Contains(t, app.View(), "30 days notice")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewQuery, app.CurrentView())
}

func TestApp_NavigateThenOpenSecondPassage(t *testing.T) {
	app, _ := newTestApp(t)
	submit(t, app, "termination")

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	require.NotNil(t, app.SelectedHit())
	assert.Equal(t, 7, app.SelectedHit().Position)
}

func TestApp_HelpView(t *testing.T) {
	app, _ := newTestApp(t)
	submit(t, app, "termination")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Toggle dynamic k")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewQuery, app.CurrentView())
}

func TestApp_CtrlCQuits(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_EscOnEmptyInputQuits(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app, _ := newTestApp(t)
	app.Update(messages.ViewChanged{View: messages.ViewPassage})

	app.Update(messages.ErrorOccurred{Err: errors.New("provider down")})

	assert.EqualError(t, app.Err(), "provider down")
	assert.Equal(t, messages.ViewQuery, app.CurrentView())
}

func TestApp_LoadsSessionInfo(t *testing.T) {
	sessions := &MockSessionService{
		InfoFunc: func(_ context.Context, id string) (*domain.SessionInfo, error) {
			return &domain.SessionInfo{ID: id, ChunksIndexed: 12, Documents: 2}, nil
		},
	}
	app, err := NewApp(&Ports{
		Retrieval: &MockRetrievalService{},
		Sessions:  sessions,
		SessionID: "session-1",
	})
	require.NoError(t, err)
	app.SetDimensions(120, 30)

	cmd := app.loadSessionInfo()
	require.NotNil(t, cmd)
	msg := cmd()
	loaded, ok := msg.(messages.SessionInfoLoaded)
	require.True(t, ok)
	assert.Equal(t, "session-1", loaded.Info.ID)

	app.Update(msg)
	assert.Contains(t, app.View(), "12 chunks, 2 documents")
}

func TestApp_LoadSessionInfoWithoutSessions(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Nil(t, app.loadSessionInfo())
}
