package app

import (
	"io"

	"workbench/internal/config"
	"workbench/internal/prompt"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// PromptMode overrides the configured prompt mode when non-empty.
	PromptMode config.PromptMode

	// Answers, when set, replace interactive prompting.
	Answers []prompt.Answer

	// In and Out are the terminal used for prompting. Logs go to ErrOut.
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// Workbench configuration; loaded by NewApplication when nil.
	WorkbenchConfig *config.WorkbenchConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, in io.Reader, out, errOut io.Writer) *Config {
	return &Config{
		Debug:  debug,
		In:     in,
		Out:    out,
		ErrOut: errOut,
	}
}
