package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"workbench/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/workbench"
	projectConfigDir = ".workbench"
	configFileName   = "config.yaml"
)

// LoadConfig loads the workbench configuration by layering default, user,
// and project settings.
func LoadConfig() (WorkbenchConfig, error) {
	config := GetDefaultConfig()

	for _, layer := range []struct {
		name string
		path func() (string, error)
	}{
		{"user", getUserConfigPath},
		{"project", getProjectConfigPath},
	} {
		path, err := layer.path()
		if err != nil {
			// Optional layer.
			logging.Warn("Config", "Could not determine %s config path: %v", layer.name, err)
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		overlay, err := loadConfigFromFile(path)
		if err != nil {
			return WorkbenchConfig{}, fmt.Errorf("error loading %s config from %s: %w", layer.name, path, err)
		}
		logging.Debug("Config", "Loaded %s config from %s", layer.name, path)
		config = mergeConfigs(config, overlay)
	}

	if config.Preferences.Path == "" {
		dir, err := GetUserConfigDir()
		if err != nil {
			return WorkbenchConfig{}, fmt.Errorf("resolving preferences path: %w", err)
		}
		config.Preferences.Path = filepath.Join(dir, preferencesFileName)
	}

	if err := config.Validate(); err != nil {
		return WorkbenchConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	dir, err := GetUserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a WorkbenchConfig from a YAML file. Unknown keys
// are rejected.
func loadConfigFromFile(filePath string) (WorkbenchConfig, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return WorkbenchConfig{}, err
	}
	defer f.Close()

	var config WorkbenchConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return WorkbenchConfig{}, nil
		}
		return WorkbenchConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Only values set
// in the overlay win.
func mergeConfigs(base, overlay WorkbenchConfig) WorkbenchConfig {
	merged := base
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.Preferences.Path != "" {
		merged.Preferences.Path = overlay.Preferences.Path
	}
	if overlay.Preferences.PromptWhenStillOpen != nil {
		v := *overlay.Preferences.PromptWhenStillOpen
		merged.Preferences.PromptWhenStillOpen = &v
	}
	if overlay.Prompt.Mode != "" {
		merged.Prompt.Mode = overlay.Prompt.Mode
	}
	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
