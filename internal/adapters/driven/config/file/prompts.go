package file

import (
	"os"
	"path/filepath"
	"strings"
)

// systemPromptFile is the optional override file inside the config
// directory. When present and non-empty its contents replace the
// built-in system prompt.
const systemPromptFile = "system_prompt.txt"

// LoadSystemPrompt reads the system prompt override from the config
// directory. Returns def when the file is absent or blank.
func LoadSystemPrompt(configDir, def string) (string, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return def, err
		}
		configDir = filepath.Join(home, ".assistant")
	}

	data, err := os.ReadFile(filepath.Join(configDir, systemPromptFile))
	if err != nil {
		if os.IsNotExist(err) {
			return def, nil
		}
		return def, err
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return def, nil
	}
	return prompt, nil
}

// SaveSystemPrompt writes the system prompt override file.
func SaveSystemPrompt(configDir, prompt string) error {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configDir = filepath.Join(home, ".assistant")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, systemPromptFile), []byte(prompt), 0600)
}
