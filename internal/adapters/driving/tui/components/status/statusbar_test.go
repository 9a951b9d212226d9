package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/clause/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
	assert.Nil(t, bar.Init())
}

func TestStatusBar_UpdateIsPassive(t *testing.T) {
	bar := NewBar(nil, nil)

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_Setters(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetState(StateResults)
	bar.SetMessage("done")
	bar.SetResultCount(4)
	bar.SetSession("session abc, 12 chunks")
	bar.SetWidth(120)

	assert.Equal(t, StateResults, bar.State())
	assert.Equal(t, "done", bar.Message())
	assert.Equal(t, 4, bar.ResultCount())
	assert.Equal(t, "session abc, 12 chunks", bar.Session())
	assert.Equal(t, 120, bar.Width())
}

func TestStatusBar_ClearKeepsSession(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetResultCount(3)
	bar.SetSession("session abc")

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
	assert.Equal(t, "session abc", bar.Session())
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Bar)
		want  []string
	}{
		{
			name:  "ready",
			setup: func(_ *Bar) {},
			want:  []string{"Ready", "enter: ask"},
		},
		{
			name:  "retrieving",
			setup: func(b *Bar) { b.SetState(StateSearching) },
			want:  []string{"Retrieving..."},
		},
		{
			name:  "error without message",
			setup: func(b *Bar) { b.SetState(StateError) },
			want:  []string{"Error"},
		},
		{
			name: "error with message",
			setup: func(b *Bar) {
				b.SetState(StateError)
				b.SetMessage("session not found")
			},
			want: []string{"Error: session not found"},
		},
		{
			name: "results",
			setup: func(b *Bar) {
				b.SetState(StateResults)
				b.SetResultCount(3)
			},
			want: []string{"3 passages", "n: new query", "enter: open"},
		},
		{
			name:  "passage",
			setup: func(b *Bar) { b.SetState(StatePassage) },
			want:  []string{"Passage"},
		},
		{
			name: "session and dynamic",
			setup: func(b *Bar) {
				b.SetSession("7 chunks")
				b.SetDynamic(true)
			},
			want: []string{"7 chunks", "[dynamic k]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			tt.setup(bar)

			view := bar.View()

			for _, w := range tt.want {
				assert.Contains(t, view, w)
			}
		})
	}
}
