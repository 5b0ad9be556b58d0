package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// File is one configuration layer as stored on disk. Every field is
// optional; unset fields leave the lower layer untouched.
type File struct {
	Provider       string   `yaml:"provider,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	BaseURL        string   `yaml:"base_url,omitempty"`
	APIKey         string   `yaml:"api_key,omitempty"`
	MaxTokens      *int     `yaml:"max_tokens,omitempty"`
	ShellPolicy    string   `yaml:"shell_policy,omitempty"`
	ShellTimeout   string   `yaml:"shell_timeout,omitempty"`
	MaxOutput      string   `yaml:"max_output,omitempty"`
	MaxRead        string   `yaml:"max_read,omitempty"`
	ContextBudget  *int     `yaml:"context_budget,omitempty"`
	SummaryChars   *int     `yaml:"summary_chars,omitempty"`
	MaxAutoTurns   *int     `yaml:"max_auto_turns,omitempty"`
	AutoCommit     *bool    `yaml:"auto_commit,omitempty"`
	CommitMessage  string   `yaml:"commit_message,omitempty"`
	ValidateSyntax *bool    `yaml:"validate_syntax,omitempty"`
	ProtectedPaths []string `yaml:"protected_paths,omitempty"`
	JournalPath    string   `yaml:"journal_path,omitempty"`
	SearchResults  *int     `yaml:"search_results,omitempty"`
	Retry          *struct {
		MaxRetries   *int   `yaml:"max_retries,omitempty"`
		InitialDelay string `yaml:"initial_delay,omitempty"`
		MaxDelay     string `yaml:"max_delay,omitempty"`
	} `yaml:"retry,omitempty"`
}

// Apply overlays the layer onto c and returns the result.
func (f *File) Apply(c Config) (Config, error) {
	if f == nil {
		return c, nil
	}
	c = c.clone()
	setString(&c.Provider, f.Provider)
	setString(&c.Model, f.Model)
	setString(&c.BaseURL, f.BaseURL)
	setString(&c.APIKey, f.APIKey)
	setString(&c.CommitMessage, f.CommitMessage)
	setString(&c.JournalPath, f.JournalPath)
	setInt(&c.MaxTokens, f.MaxTokens)
	setInt(&c.ContextBudget, f.ContextBudget)
	setInt(&c.SummaryChars, f.SummaryChars)
	setInt(&c.MaxAutoTurns, f.MaxAutoTurns)
	setInt(&c.SearchResults, f.SearchResults)
	if f.AutoCommit != nil {
		c.AutoCommit = *f.AutoCommit
	}
	if f.ValidateSyntax != nil {
		c.ValidateSyntax = *f.ValidateSyntax
	}
	if len(f.ProtectedPaths) > 0 {
		c.ProtectedPaths = append([]string(nil), f.ProtectedPaths...)
	}

	if f.ShellPolicy != "" {
		p, err := ParseShellPolicy(f.ShellPolicy)
		if err != nil {
			return c, err
		}
		c.ShellPolicy = p
	}
	if err := setDuration(&c.ShellTimeout, f.ShellTimeout, "shell_timeout"); err != nil {
		return c, err
	}
	if err := setSize(&c.MaxOutputBytes, f.MaxOutput, "max_output"); err != nil {
		return c, err
	}
	if err := setSize(&c.MaxReadBytes, f.MaxRead, "max_read"); err != nil {
		return c, err
	}
	if f.Retry != nil {
		setInt(&c.Retry.MaxRetries, f.Retry.MaxRetries)
		if err := setDuration(&c.Retry.InitialDelay, f.Retry.InitialDelay, "retry.initial_delay"); err != nil {
			return c, err
		}
		if err := setDuration(&c.Retry.MaxDelay, f.Retry.MaxDelay, "retry.max_delay"); err != nil {
			return c, err
		}
	}
	return c, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v, key string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// setSize parses human sizes such as "64KiB" or "1m" (binary multiples).
func setSize(dst *int64, v, key string) error {
	if v == "" {
		return nil
	}
	n, err := units.RAMInBytes(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// ReadFile parses a YAML (or JSON) layer. A missing file yields nil, nil.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &f, nil
}

// Manager handles loading and saving the per-user configuration layer.
type Manager struct {
	configDir string
}

// NewManager creates a manager rooted at the user's config directory.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(configDir, "nanocoder")}, nil
}

// NewManagerAt creates a manager rooted at dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// GetConfigPath returns the absolute path to config.yaml.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.yaml")
}

// Load reads the user layer. If the file does not exist, it returns an
// empty layer and no error.
func (m *Manager) Load() (*File, error) {
	f, err := ReadFile(m.GetConfigPath())
	if err != nil {
		return nil, err
	}
	if f == nil {
		return &File{}, nil
	}
	return f, nil
}

// Save writes the user layer with restricted permissions (0600), since it
// may hold an API key.
func (m *Manager) Save(f *File) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}
