package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
)

const (
	// Dir is the directory name for per-project configuration.
	Dir = ".nanocoder"
	// ConfigFile is the name of the project configuration file.
	ConfigFile = "config.yaml"
	// AgentsFile holds free-form project instructions for the model.
	AgentsFile = "AGENTS.md"
)

// configPath returns the full path to the project config file.
func configPath(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, ConfigFile)
}

// ConfigExists checks if a project configuration file exists.
func ConfigExists(repoRoot string) bool {
	_, err := os.Stat(configPath(repoRoot))
	return !os.IsNotExist(err)
}

// LoadConfig reads the project configuration layer.
// Returns nil and no error if the config file does not exist.
func LoadConfig(repoRoot string) (*config.File, error) {
	f, err := config.ReadFile(configPath(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("project config: %w", err)
	}
	return f, nil
}

// SaveConfig writes the project configuration layer, creating .nanocoder/.
func SaveConfig(repoRoot string, f *config.File) error {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal project config: %w", err)
	}
	if err := os.WriteFile(configPath(repoRoot), data, 0644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}

// LoadAgentsMD returns the contents of AGENTS.md at the repository root.
// ok is false when the file is missing, unreadable, or blank.
func LoadAgentsMD(repoRoot string) (text string, ok bool) {
	data, err := os.ReadFile(filepath.Join(repoRoot, AgentsFile))
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", false
	}
	return string(data), true
}
