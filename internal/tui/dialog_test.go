package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench/internal/prompt"
	"workbench/internal/saveable"
	"workbench/internal/saveable/saveabletest"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, d Dialog, msgs ...tea.Msg) (Dialog, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = d.Update(msg)
		var ok bool
		d, ok = next.(Dialog)
		require.True(t, ok)
	}
	return d, cmd
}

func items(keys ...string) []saveable.Saveable {
	out := make([]saveable.Saveable, 0, len(keys))
	for _, k := range keys {
		out = append(out, saveabletest.NewDirty(k))
	}
	return out
}

func TestNewDialog_PicksModel(t *testing.T) {
	keys := DefaultKeyMap()
	assert.IsType(t, &ConfirmModel{}, NewDialog(prompt.Request{Saveables: items("a")}, keys))
	assert.IsType(t, &ChecklistModel{}, NewDialog(prompt.Request{Saveables: items("a", "b")}, keys))
}

func TestConfirm_Shortcuts(t *testing.T) {
	tests := []struct {
		name      string
		canCancel bool
		msg       tea.KeyMsg
		want      prompt.Choice
		answered  bool
	}{
		{"yes", true, runes("y"), prompt.SaveAll, true},
		{"no", true, runes("n"), prompt.SaveNone, true},
		{"escape cancels", true, tea.KeyMsg{Type: tea.KeyEsc}, prompt.Cancel, true},
		{"escape ignored when forced", false, tea.KeyMsg{Type: tea.KeyEsc}, 0, false},
		{"ctrl+c when forced", false, tea.KeyMsg{Type: tea.KeyCtrlC}, prompt.SaveNone, true},
		{"enter on first button", true, tea.KeyMsg{Type: tea.KeyEnter}, prompt.SaveAll, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDialog(prompt.Request{Saveables: items("a"), CanCancel: tt.canCancel}, DefaultKeyMap())
			d, cmd := send(t, d, tt.msg)
			resp, answered := d.Result()
			assert.Equal(t, tt.answered, answered)
			if tt.answered {
				assert.Equal(t, tt.want, resp.Choice)
				assert.NotNil(t, cmd)
			} else {
				assert.Nil(t, cmd)
			}
		})
	}
}

func TestConfirm_ButtonFocusWraps(t *testing.T) {
	d := NewDialog(prompt.Request{Saveables: items("a"), CanCancel: true}, DefaultKeyMap())
	d, _ = send(t, d, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyEnter})
	resp, ok := d.Result()
	require.True(t, ok)
	assert.Equal(t, prompt.Cancel, resp.Choice)

	d = NewDialog(prompt.Request{Saveables: items("a")}, DefaultKeyMap())
	d, _ = send(t, d, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyEnter})
	resp, ok = d.Result()
	require.True(t, ok)
	assert.Equal(t, prompt.SaveNone, resp.Choice, "no cancel button when the close is forced")
}

func TestConfirm_DontAskAgainOnlyWhenStillOpen(t *testing.T) {
	d := NewDialog(prompt.Request{Saveables: items("a"), StillOpenElsewhere: true}, DefaultKeyMap())
	assert.Contains(t, d.View(), "still open elsewhere")
	d, _ = send(t, d, runes("d"), runes("n"))
	resp, _ := d.Result()
	assert.True(t, resp.DontAskAgain)

	d = NewDialog(prompt.Request{Saveables: items("a")}, DefaultKeyMap())
	d, _ = send(t, d, runes("d"), runes("n"))
	resp, _ = d.Result()
	assert.False(t, resp.DontAskAgain)
}

func TestChecklist_Selection(t *testing.T) {
	req := prompt.Request{Saveables: items("a", "b", "c"), CanCancel: true}

	d := NewDialog(req, DefaultKeyMap())
	assert.Contains(t, d.View(), "[x] b")
	d, _ = send(t, d, tea.KeyMsg{Type: tea.KeyDown}, runes(" "), tea.KeyMsg{Type: tea.KeyEnter})
	resp, ok := d.Result()
	require.True(t, ok)
	assert.Equal(t, prompt.SaveSubset, resp.Choice)
	assert.Equal(t, []string{"a", "c"}, saveable.Names(resp.Selected))

	d = NewDialog(req, DefaultKeyMap())
	d, _ = send(t, d, runes("n"), tea.KeyMsg{Type: tea.KeyEnter})
	resp, _ = d.Result()
	assert.Equal(t, prompt.SaveNone, resp.Choice)

	d = NewDialog(req, DefaultKeyMap())
	d, _ = send(t, d, runes("n"), runes("a"), tea.KeyMsg{Type: tea.KeyEnter})
	resp, _ = d.Result()
	assert.Equal(t, prompt.SaveAll, resp.Choice)

	d = NewDialog(req, DefaultKeyMap())
	d, _ = send(t, d, tea.KeyMsg{Type: tea.KeyEsc})
	resp, _ = d.Result()
	assert.Equal(t, prompt.Cancel, resp.Choice)
}

func TestChecklist_CursorStaysInRange(t *testing.T) {
	d := NewDialog(prompt.Request{Saveables: items("a", "b")}, DefaultKeyMap())
	d, _ = send(t, d,
		tea.KeyMsg{Type: tea.KeyUp},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyDown},
		runes(" "),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	resp, _ := d.Result()
	assert.Equal(t, prompt.SaveSubset, resp.Choice)
	assert.Equal(t, []string{"a"}, saveable.Names(resp.Selected))
}

func TestChecklist_IgnoresInputAfterAnswer(t *testing.T) {
	d := NewDialog(prompt.Request{Saveables: items("a", "b"), CanCancel: true}, DefaultKeyMap())
	d, _ = send(t, d, tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEsc})
	resp, _ := d.Result()
	assert.Equal(t, prompt.SaveAll, resp.Choice)
	assert.Empty(t, d.View())
}
