package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"workbench/internal/prompt"
	"workbench/internal/saveable"
	"workbench/internal/tui/design"
)

// ChecklistModel lets the user pick which of several saveables to save.
// Every item starts checked.
type ChecklistModel struct {
	req     prompt.Request
	keys    KeyMap
	checked []bool
	cursor  int
	dontAsk bool

	done bool
	resp prompt.Response
}

// NewChecklistModel builds the dialog for req.
func NewChecklistModel(req prompt.Request, keys KeyMap) *ChecklistModel {
	checked := make([]bool, len(req.Saveables))
	for i := range checked {
		checked[i] = true
	}
	return &ChecklistModel{req: req, keys: keys, checked: checked}
}

func (m *ChecklistModel) Init() tea.Cmd { return nil }

func (m *ChecklistModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.checked)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Toggle):
		m.checked[m.cursor] = !m.checked[m.cursor]
	case key.Matches(keyMsg, m.keys.All):
		m.setAll(true)
	case key.Matches(keyMsg, m.keys.None):
		m.setAll(false)
	case key.Matches(keyMsg, m.keys.DontAsk):
		if m.req.StillOpenElsewhere {
			m.dontAsk = !m.dontAsk
		}
	case key.Matches(keyMsg, m.keys.Confirm):
		return m.finish(m.selection())
	case key.Matches(keyMsg, m.keys.Cancel), key.Matches(keyMsg, m.keys.ForceClose):
		if m.req.CanCancel {
			return m.finish(prompt.Response{Choice: prompt.Cancel})
		}
		if key.Matches(keyMsg, m.keys.ForceClose) {
			return m.finish(prompt.Response{Choice: prompt.SaveNone})
		}
	}
	return m, nil
}

func (m *ChecklistModel) setAll(v bool) {
	for i := range m.checked {
		m.checked[i] = v
	}
}

func (m *ChecklistModel) selection() prompt.Response {
	var selected []saveable.Saveable
	for i, s := range m.req.Saveables {
		if m.checked[i] {
			selected = append(selected, s)
		}
	}
	switch len(selected) {
	case 0:
		return prompt.Response{Choice: prompt.SaveNone}
	case len(m.req.Saveables):
		return prompt.Response{Choice: prompt.SaveAll}
	default:
		return prompt.Response{Choice: prompt.SaveSubset, Selected: selected}
	}
}

func (m *ChecklistModel) finish(resp prompt.Response) (tea.Model, tea.Cmd) {
	resp.DontAskAgain = m.dontAsk
	m.done = true
	m.resp = resp
	return m, tea.Quit
}

// Result returns the answer once the dialog was closed.
func (m *ChecklistModel) Result() (prompt.Response, bool) {
	return m.resp, m.done
}

func (m *ChecklistModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(design.TitleStyle.Render("Save Resources"))
	b.WriteString("\n")
	if m.req.StillOpenElsewhere {
		b.WriteString(design.TextStyle.Render("Some modified resources are still open elsewhere. Select the ones to save:"))
	} else {
		b.WriteString(design.TextStyle.Render("Select the resources to save:"))
	}
	b.WriteString("\n\n")

	for i, s := range m.req.Saveables {
		cursor := " "
		style := design.ListItemStyle
		if i == m.cursor {
			cursor = design.IconCursor
			style = design.ListItemSelectedStyle
		}
		line := fmt.Sprintf("%s %s %s", cursor, design.Checkbox(m.checked[i]), s.Name())
		b.WriteString(style.Render(line))
		if tip := s.ToolTip(); tip != "" && tip != s.Name() {
			b.WriteString(" ")
			b.WriteString(design.TextSecondaryStyle.Render(tip))
		}
		b.WriteString("\n")
	}

	if m.req.StillOpenElsewhere {
		b.WriteString("\n")
		b.WriteString(design.TextStyle.Render(design.Checkbox(m.dontAsk) + " Do not prompt to save on close when still open elsewhere"))
		b.WriteString("\n")
	}
	if !m.req.CanCancel {
		b.WriteString(design.TextWarningStyle.Render(design.IconWarning + " This close cannot be cancelled."))
		b.WriteString("\n")
	}

	help := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Toggle, m.keys.All, m.keys.None, m.keys.Confirm}
	if m.req.CanCancel {
		help = append(help, m.keys.Cancel)
	}
	if m.req.StillOpenElsewhere {
		help = append(help, m.keys.DontAsk)
	}
	b.WriteString(design.HelpStyle.Render(helpLine(help)))

	style := design.DialogStyle
	if !m.req.CanCancel {
		style = design.DialogWarningStyle
	}
	return style.Render(b.String()) + "\n"
}
