package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"workbench/internal/prompt"
	"workbench/pkg/logging"
)

// ErrDismissed is returned when the dialog exited without an answer.
var ErrDismissed = errors.New("save dialog dismissed")

// Dialog is a save dialog model.
type Dialog interface {
	tea.Model
	Result() (prompt.Response, bool)
}

// NewDialog picks the dialog for req: a confirmation for a single saveable,
// a checklist otherwise.
func NewDialog(req prompt.Request, keys KeyMap) Dialog {
	if len(req.Saveables) == 1 {
		return NewConfirmModel(req, keys)
	}
	return NewChecklistModel(req, keys)
}

// Prompter shows save dialogs on a terminal.
type Prompter struct {
	in   io.Reader
	out  io.Writer
	keys KeyMap
}

// NewPrompter returns a Prompter reading keys from in and drawing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, keys: DefaultKeyMap()}
}

// Prompt runs one dialog to completion. Log output is held back while the
// dialog is on screen.
func (p *Prompter) Prompt(ctx context.Context, req prompt.Request) (prompt.Response, error) {
	if len(req.Saveables) == 0 {
		return prompt.Response{Choice: prompt.SaveNone}, nil
	}

	logging.Suspend()
	defer logging.Resume()

	program := tea.NewProgram(NewDialog(req, p.keys),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := program.Run()
	if err != nil {
		return prompt.Response{}, fmt.Errorf("running save dialog: %w", err)
	}

	d, ok := final.(Dialog)
	if !ok {
		return prompt.Response{}, ErrDismissed
	}
	resp, answered := d.Result()
	if !answered {
		return prompt.Response{}, ErrDismissed
	}
	return prompt.Normalize(req, resp), nil
}
