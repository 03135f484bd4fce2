package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points both config layers and the home directory at dir.
func isolate(t *testing.T, dir string) {
	t.Helper()
	originalHome, originalGetwd := osUserHomeDir, osGetwd
	t.Cleanup(func() {
		osUserHomeDir = originalHome
		osGetwd = originalGetwd
	})
	osUserHomeDir = func() (string, error) { return filepath.Join(dir, "home"), nil }
	osGetwd = func() (string, error) { return filepath.Join(dir, "project"), nil }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, PromptModeAuto, cfg.Prompt.Mode)
	assert.True(t, cfg.Preferences.StillOpenDefault())
	assert.Equal(t, filepath.Join(dir, "home", userConfigDir, preferencesFileName), cfg.Preferences.Path)
}

func TestLoadConfig_ProjectOverridesUser(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)

	writeFile(t, filepath.Join(dir, "home", userConfigDir, configFileName), `
logLevel: debug
preferences:
  path: /tmp/user-prefs.db
  promptWhenStillOpen: false
prompt:
  mode: line
`)
	writeFile(t, filepath.Join(dir, "project", projectConfigDir, configFileName), `
prompt:
  mode: tui
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/user-prefs.db", cfg.Preferences.Path)
	assert.False(t, cfg.Preferences.StillOpenDefault())
	assert.Equal(t, PromptModeTUI, cfg.Prompt.Mode)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)
	writeFile(t, filepath.Join(dir, "project", projectConfigDir, configFileName), "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "logLevel: [unterminated"},
		{"unknown key", "portForwards: []"},
		{"bad prompt mode", "prompt:\n  mode: gui"},
		{"bad log level", "logLevel: loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			isolate(t, dir)
			writeFile(t, filepath.Join(dir, "project", projectConfigDir, configFileName), tt.content)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestMergeConfigs_KeepsUnsetValues(t *testing.T) {
	no := false
	base := GetDefaultConfig()
	base.Preferences.PromptWhenStillOpen = &no

	merged := mergeConfigs(base, WorkbenchConfig{LogLevel: "warn"})
	assert.Equal(t, "warn", merged.LogLevel)
	assert.Equal(t, PromptModeAuto, merged.Prompt.Mode)
	require.NotNil(t, merged.Preferences.PromptWhenStillOpen)
	assert.False(t, *merged.Preferences.PromptWhenStillOpen)
}
