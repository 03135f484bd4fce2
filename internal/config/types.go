package config

import "fmt"

// WorkbenchConfig is the top-level configuration structure for workbench.
type WorkbenchConfig struct {
	LogLevel    string            `yaml:"logLevel,omitempty"` // debug, info, warn or error
	Preferences PreferencesConfig `yaml:"preferences"`
	Prompt      PromptConfig      `yaml:"prompt"`
}

// PreferencesConfig controls where persisted preferences live.
type PreferencesConfig struct {
	Path string `yaml:"path,omitempty"` // bbolt database file

	// PromptWhenStillOpen is used until the user stores an answer of their
	// own. Nil means "not set in this layer".
	PromptWhenStillOpen *bool `yaml:"promptWhenStillOpen,omitempty"`
}

// PromptMode selects how save questions are asked.
type PromptMode string

const (
	// PromptModeAuto uses dialogs on a terminal and plain lines otherwise.
	PromptModeAuto PromptMode = "auto"
	PromptModeTUI  PromptMode = "tui"
	PromptModeLine PromptMode = "line"
)

// PromptConfig holds prompt settings.
type PromptConfig struct {
	Mode PromptMode `yaml:"mode,omitempty"`
}

// Validate checks the values a user can get wrong.
func (c WorkbenchConfig) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logLevel %q", c.LogLevel)
	}
	switch c.Prompt.Mode {
	case "", PromptModeAuto, PromptModeTUI, PromptModeLine:
	default:
		return fmt.Errorf("invalid prompt.mode %q", c.Prompt.Mode)
	}
	return nil
}

// StillOpenDefault resolves PromptWhenStillOpen.
func (p PreferencesConfig) StillOpenDefault() bool {
	if p.PromptWhenStillOpen == nil {
		return true
	}
	return *p.PromptWhenStillOpen
}
