// Package config provides configuration management for workbench.
//
// Configuration is loaded from YAML files and merged in order, with later
// sources overriding earlier ones:
//
//  1. Default configuration (built into the binary)
//  2. User configuration (~/.config/workbench/config.yaml)
//  3. Project configuration (./.workbench/config.yaml)
//
// Missing files are skipped. A malformed file or an unknown key is an error.
//
// # Configuration Structure
//
//	logLevel: info              # debug, info, warn, error
//	preferences:
//	  path: ~/.config/workbench/preferences.db
//	  promptWhenStillOpen: true # default for the "still open elsewhere" prompt
//	prompt:
//	  mode: auto                # auto, tui or line
//
// promptWhenStillOpen only seeds the preference. Once the user ticks
// "don't ask again" in a dialog the stored preference wins.
package config
