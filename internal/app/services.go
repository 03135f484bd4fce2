package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"workbench/internal/config"
	"workbench/internal/preferences"
	"workbench/internal/progress"
	"workbench/internal/prompt"
	"workbench/internal/saveable/negotiate"
	"workbench/internal/tui"
	"workbench/internal/uiloop"
	"workbench/internal/workbench"
	"workbench/pkg/logging"
)

// Services holds everything a session runs against.
type Services struct {
	Loop        *uiloop.Loop
	Preferences preferences.Store
	Prompter    prompt.Prompter
	Negotiator  *negotiate.Negotiator
	Workbench   *workbench.Workbench

	closePrefs func() error
}

// InitializeServices wires the services described by cfg.
func InitializeServices(cfg *Config) (*Services, error) {
	wbCfg := cfg.WorkbenchConfig

	prefs, closePrefs, err := openPreferences(wbCfg.Preferences.Path)
	if err != nil {
		return nil, err
	}

	p := selectPrompter(cfg)
	n := negotiate.New(p, prefs,
		negotiate.WithStillOpenDefault(wbCfg.Preferences.StillOpenDefault()),
		negotiate.WithReporter(reportProgress),
	)
	loop := uiloop.New(16)

	return &Services{
		Loop:        loop,
		Preferences: prefs,
		Prompter:    p,
		Negotiator:  n,
		Workbench:   workbench.New(loop, n),
		closePrefs:  closePrefs,
	}, nil
}

// Close stops the loop and closes the preference store.
func (s *Services) Close() error {
	s.Loop.Close()
	if s.closePrefs != nil {
		return s.closePrefs()
	}
	return nil
}

func openPreferences(path string) (preferences.Store, func() error, error) {
	if path == "" {
		logging.Debug("Bootstrap", "No preferences path, keeping preferences in memory")
		return preferences.NewMemory(), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating preferences directory: %w", err)
	}
	store, err := preferences.OpenBolt(path)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// selectPrompter picks scripted answers, terminal dialogs or plain lines.
func selectPrompter(cfg *Config) prompt.Prompter {
	if len(cfg.Answers) > 0 {
		return prompt.NewScripted(cfg.Answers...)
	}

	mode := cfg.WorkbenchConfig.Prompt.Mode
	if cfg.PromptMode != "" {
		mode = cfg.PromptMode
	}
	if mode == config.PromptModeAuto || mode == "" {
		mode = config.PromptModeLine
		if isTerminal(cfg.In) {
			mode = config.PromptModeTUI
		}
	}
	logging.Debug("Bootstrap", "Using %s prompts", mode)

	if mode == config.PromptModeTUI {
		return tui.NewPrompter(cfg.In, cfg.Out)
	}
	return prompt.NewLine(cfg.In, cfg.Out)
}

func isTerminal(r interface{}) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func reportProgress(u progress.Update) {
	if u.Done {
		logging.Debug("Save", "%s done", u.Task)
		return
	}
	logging.Debug("Save", "%s: %d/%d", u.Task, u.Worked, u.Total)
}
