package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench/internal/config"
	"workbench/internal/preferences"
	"workbench/internal/prompt"
	"workbench/internal/tui"
)

func newTestApp(t *testing.T, answers []prompt.Answer, out io.Writer) *Application {
	t.Helper()
	cfg := NewConfig(false, strings.NewReader(""), out, io.Discard)
	wbCfg := config.GetDefaultConfig()
	cfg.WorkbenchConfig = &wbCfg
	cfg.Answers = answers

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })
	return application
}

func loadSession(t *testing.T, dir, content string) *Session {
	t.Helper()
	s, err := DecodeSession(strings.NewReader(content), dir)
	require.NoError(t, err)
	return s
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_CloseAllSavesSelection(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.txt"), "A1")
	write(t, filepath.Join(dir, "b.txt"), "B1")

	s := loadSession(t, dir, `
documents:
  a: a.txt
  b: b.txt
answers:
  - choice: save-subset
    names: [b.txt]
steps:
  - {action: open-editor, part: e1, document: a}
  - {action: open-editor, part: e2, document: b}
  - {action: edit, document: a, text: A2}
  - {action: edit, document: b, text: B2}
  - {action: close-all}
`)

	var out bytes.Buffer
	application := newTestApp(t, s.Answers, &out)
	require.NoError(t, application.Run(context.Background(), s))

	assert.Equal(t, "A1", read(t, filepath.Join(dir, "a.txt")))
	assert.Equal(t, "B2", read(t, filepath.Join(dir, "b.txt")))
	assert.Contains(t, out.String(), "Closed e1, e2")

	scripted, ok := application.Services().Prompter.(*prompt.Scripted)
	require.True(t, ok)
	assert.Zero(t, scripted.Remaining())
}

func TestRun_CancelKeepsPartsOpen(t *testing.T) {
	dir := t.TempDir()
	s := loadSession(t, dir, `
documents:
  a: a.txt
answers:
  - choice: cancel
steps:
  - {action: open-editor, part: e1, document: a}
  - {action: edit, document: a, text: draft}
  - {action: close, parts: [e1]}
  - {action: close, parts: [e1], save: false}
`)

	var out bytes.Buffer
	application := newTestApp(t, s.Answers, &out)
	require.NoError(t, application.Run(context.Background(), s))

	assert.Contains(t, out.String(), "Close cancelled")
	assert.Contains(t, out.String(), "Closed e1")
	_, err := os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err), "nothing was saved")
}

func TestRun_IndexerAndStatus(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.txt"), "A1")
	s := loadSession(t, dir, `
documents:
  a: a.txt
steps:
  - {action: open-editor, part: e1, document: a}
  - {action: index, part: ix, documents: [a]}
  - {action: edit, document: a, text: A2}
  - {action: status}
  - {action: save-all}
  - {action: unindex, part: ix, documents: [a]}
  - {action: rename, document: a, to: moved.txt}
  - {action: save-all}
`)

	var out bytes.Buffer
	application := newTestApp(t, nil, &out)
	require.NoError(t, application.Run(context.Background(), s))

	assert.Contains(t, out.String(), "DOCUMENT")
	assert.Contains(t, out.String(), "a.txt")
	assert.Contains(t, out.String(), "Saved a.txt")
	assert.Equal(t, "A2", read(t, filepath.Join(dir, "a.txt")))
	assert.Equal(t, "A2", read(t, filepath.Join(dir, "moved.txt")))
}

func TestRun_StepErrors(t *testing.T) {
	tests := []struct {
		name  string
		steps string
		want  string
	}{
		{"unknown action", "- {action: explode}", `unknown action "explode"`},
		{"unknown document", "- {action: open-editor, part: e1, document: nope}", `unknown document "nope"`},
		{"unknown part", "- {action: close, parts: [nope]}", "unknown part nope"},
		{"duplicate part", "- {action: open-editor, part: e1, document: a}\n- {action: open-editor, part: e1, document: a}", "already open"},
		{"bad onClose", "- {action: open-view, part: v, documents: [a], onClose: maybe}", `invalid onClose "maybe"`},
		{"unindex unknown", "- {action: unindex, part: ix, documents: [a]}", "unknown indexer ix"},
		{"focus on editor", "- {action: open-editor, part: e1, document: a}\n- {action: focus, part: e1, document: a}", "e1 is not an open view"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := loadSession(t, dir, "documents:\n  a: a.txt\nsteps:\n"+tt.steps+"\n")
			application := newTestApp(t, nil, io.Discard)
			err := application.Run(context.Background(), s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeSession_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeSession(strings.NewReader("steps:\n  - {action: edit, colour: red}\n"), t.TempDir())
	assert.Error(t, err)
}

func TestSelectPrompter(t *testing.T) {
	wbCfg := config.GetDefaultConfig()
	newCfg := func(mode config.PromptMode) *Config {
		cfg := NewConfig(false, strings.NewReader(""), io.Discard, io.Discard)
		cfg.WorkbenchConfig = &wbCfg
		cfg.PromptMode = mode
		return cfg
	}

	assert.IsType(t, &prompt.Line{}, selectPrompter(newCfg("")), "auto without a terminal")
	assert.IsType(t, &prompt.Line{}, selectPrompter(newCfg(config.PromptModeLine)))
	assert.IsType(t, &tui.Prompter{}, selectPrompter(newCfg(config.PromptModeTUI)))

	cfg := newCfg(config.PromptModeTUI)
	cfg.Answers = []prompt.Answer{{Choice: prompt.SaveAll}}
	assert.IsType(t, &prompt.Scripted{}, selectPrompter(cfg))
}

func TestInitializeServices_BoltPreferences(t *testing.T) {
	dir := t.TempDir()
	wbCfg := config.GetDefaultConfig()
	wbCfg.Preferences.Path = filepath.Join(dir, "nested", "prefs.db")
	cfg := NewConfig(false, strings.NewReader(""), io.Discard, io.Discard)
	cfg.WorkbenchConfig = &wbCfg

	services, err := InitializeServices(cfg)
	require.NoError(t, err)
	assert.IsType(t, &preferences.BoltStore{}, services.Preferences)
	require.NoError(t, preferences.SetBool(services.Preferences, preferences.PromptWhenStillOpen, false))
	require.NoError(t, services.Close())

	store, err := preferences.OpenBolt(wbCfg.Preferences.Path)
	require.NoError(t, err)
	defer store.Close()
	v, err := preferences.Bool(store, preferences.PromptWhenStillOpen, true)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestRun_SaveFocusedDocument(t *testing.T) {
	dir := t.TempDir()
	s := loadSession(t, dir, `
documents:
  a: a.txt
  b: b.txt
steps:
  - {action: open-view, part: diff, documents: [a, b]}
  - {action: edit, document: a, text: A}
  - {action: edit, document: b, text: B}
  - {action: focus, part: diff, document: b}
  - {action: save, part: diff}
`)

	var out bytes.Buffer
	application := newTestApp(t, nil, &out)
	require.NoError(t, application.Run(context.Background(), s))

	assert.Contains(t, out.String(), "Saved b.txt")
	assert.Equal(t, "B", read(t, filepath.Join(dir, "b.txt")))
	_, err := os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}
