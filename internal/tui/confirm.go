package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"workbench/internal/prompt"
	"workbench/internal/tui/design"
)

type button struct {
	label  string
	choice prompt.Choice
}

// ConfirmModel asks whether a single saveable should be saved.
type ConfirmModel struct {
	req     prompt.Request
	keys    KeyMap
	buttons []button
	focus   int
	dontAsk bool

	done bool
	resp prompt.Response
}

// NewConfirmModel builds the dialog for req, which must hold exactly one
// saveable.
func NewConfirmModel(req prompt.Request, keys KeyMap) *ConfirmModel {
	buttons := []button{
		{label: "Save", choice: prompt.SaveAll},
		{label: "Don't Save", choice: prompt.SaveNone},
	}
	if req.CanCancel {
		buttons = append(buttons, button{label: "Cancel", choice: prompt.Cancel})
	}
	return &ConfirmModel{req: req, keys: keys, buttons: buttons}
}

func (m *ConfirmModel) Init() tea.Cmd { return nil }

func (m *ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		return m.finish(prompt.SaveAll)
	case key.Matches(keyMsg, m.keys.No):
		return m.finish(prompt.SaveNone)
	case key.Matches(keyMsg, m.keys.Cancel), key.Matches(keyMsg, m.keys.ForceClose):
		if m.req.CanCancel {
			return m.finish(prompt.Cancel)
		}
		if key.Matches(keyMsg, m.keys.ForceClose) {
			return m.finish(prompt.SaveNone)
		}
	case key.Matches(keyMsg, m.keys.Left):
		m.focus = (m.focus + len(m.buttons) - 1) % len(m.buttons)
	case key.Matches(keyMsg, m.keys.Right):
		m.focus = (m.focus + 1) % len(m.buttons)
	case key.Matches(keyMsg, m.keys.Confirm):
		return m.finish(m.buttons[m.focus].choice)
	case key.Matches(keyMsg, m.keys.DontAsk):
		if m.req.StillOpenElsewhere {
			m.dontAsk = !m.dontAsk
		}
	}
	return m, nil
}

func (m *ConfirmModel) finish(c prompt.Choice) (tea.Model, tea.Cmd) {
	m.done = true
	m.resp = prompt.Response{Choice: c, DontAskAgain: m.dontAsk}
	return m, tea.Quit
}

// Result returns the answer once the dialog was closed.
func (m *ConfirmModel) Result() (prompt.Response, bool) {
	return m.resp, m.done
}

func (m *ConfirmModel) View() string {
	if m.done {
		return ""
	}
	s := m.req.Saveables[0]

	var b strings.Builder
	b.WriteString(design.TitleStyle.Render("Save Resource"))
	b.WriteString("\n")
	if m.req.StillOpenElsewhere {
		b.WriteString(design.TextStyle.Render(fmt.Sprintf("'%s' has been modified but is still open elsewhere. Save changes?", s.Name())))
	} else {
		b.WriteString(design.TextStyle.Render(fmt.Sprintf("'%s' has been modified. Save changes?", s.Name())))
	}
	if tip := s.ToolTip(); tip != "" && tip != s.Name() {
		b.WriteString("\n")
		b.WriteString(design.TextSecondaryStyle.Render(tip))
	}
	b.WriteString("\n\n")

	rendered := make([]string, 0, len(m.buttons))
	for i, btn := range m.buttons {
		style := design.ButtonSecondaryStyle
		if i == m.focus {
			style = design.ButtonStyle
		}
		rendered = append(rendered, style.MarginRight(design.SpaceXS).Render(btn.label))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))

	if m.req.StillOpenElsewhere {
		b.WriteString("\n\n")
		b.WriteString(design.TextStyle.Render(design.Checkbox(m.dontAsk) + " Do not prompt to save on close when still open elsewhere"))
	}

	help := []key.Binding{m.keys.Yes, m.keys.No}
	if m.req.CanCancel {
		help = append(help, m.keys.Cancel)
	}
	if m.req.StillOpenElsewhere {
		help = append(help, m.keys.DontAsk)
	}
	b.WriteString("\n")
	b.WriteString(design.HelpStyle.Render(helpLine(help)))

	style := design.DialogStyle
	if !m.req.CanCancel {
		style = design.DialogWarningStyle
	}
	return style.Render(b.String()) + "\n"
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
