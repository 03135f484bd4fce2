package config

const preferencesFileName = "preferences.db"

// GetDefaultConfig returns the configuration used when no file overrides
// anything. The preferences path is filled in by LoadConfig because it
// depends on the home directory.
func GetDefaultConfig() WorkbenchConfig {
	return WorkbenchConfig{
		LogLevel: "info",
		Prompt: PromptConfig{
			Mode: PromptModeAuto,
		},
	}
}
