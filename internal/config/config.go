// Package config holds the session-wide settings. A Config is a plain value:
// it is resolved once at startup and then passed by value into every
// component, never read from globals.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ShellPolicy controls whether model-issued shell commands run.
type ShellPolicy string

const (
	// ShellAuto runs commands without asking.
	ShellAuto ShellPolicy = "auto"
	// ShellConfirm asks the operator before every command.
	ShellConfirm ShellPolicy = "confirm"
	// ShellDeny never runs model-issued commands.
	ShellDeny ShellPolicy = "deny"
)

// ParseShellPolicy accepts auto, confirm or deny in any case.
func ParseShellPolicy(s string) (ShellPolicy, error) {
	switch p := ShellPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ShellAuto, ShellConfirm, ShellDeny:
		return p, nil
	}
	return "", fmt.Errorf("unknown shell policy %q (want auto, confirm or deny)", s)
}

// Retry bounds the backoff applied to transport errors.
type Retry struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Shell timeout bounds.
const (
	MinShellTimeout = time.Second
	MaxShellTimeout = 10 * time.Minute
)

// Config is the resolved, immutable session configuration.
type Config struct {
	// Model identity
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float32

	// WorkDir is the absolute root every file target resolves against.
	WorkDir string

	ShellPolicy    ShellPolicy
	ShellTimeout   time.Duration
	MaxOutputBytes int64
	MaxReadBytes   int64

	// ContextBudget is the history size limit in estimated tokens.
	ContextBudget int
	SummaryChars  int
	MaxAutoTurns  int
	Retry         Retry

	AutoCommit     bool
	CommitMessage  string
	ValidateSyntax bool
	ProtectedPaths []string
	JournalPath    string
	SearchResults  int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider:       "openai",
		MaxTokens:      4096,
		Temperature:    0.2,
		ShellPolicy:    ShellConfirm,
		ShellTimeout:   60 * time.Second,
		MaxOutputBytes: 64 << 10,
		MaxReadBytes:   256 << 10,
		ContextBudget:  32000,
		SummaryChars:   160,
		MaxAutoTurns:   8,
		Retry: Retry{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		CommitMessage:  "Update",
		ValidateSyntax: true,
		ProtectedPaths: []string{".git", ".env"},
		SearchResults:  10,
	}
}

// Validate rejects configurations the session cannot run with.
func (c Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("working directory is not set")
	}
	if !filepath.IsAbs(c.WorkDir) {
		return fmt.Errorf("working directory %q is not absolute", c.WorkDir)
	}
	if _, err := ParseShellPolicy(string(c.ShellPolicy)); err != nil {
		return err
	}
	if c.ShellTimeout < MinShellTimeout || c.ShellTimeout > MaxShellTimeout {
		return fmt.Errorf("shell timeout %s outside [%s, %s]", c.ShellTimeout, MinShellTimeout, MaxShellTimeout)
	}
	if c.ContextBudget <= 0 {
		return fmt.Errorf("context budget must be positive, got %d", c.ContextBudget)
	}
	if c.MaxAutoTurns <= 0 {
		return fmt.Errorf("max auto turns must be positive, got %d", c.MaxAutoTurns)
	}
	if c.MaxOutputBytes <= 0 || c.MaxReadBytes <= 0 {
		return fmt.Errorf("output and read limits must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry count must not be negative")
	}
	return nil
}

// WithWorkDir returns a copy rooted at dir.
func (c Config) WithWorkDir(dir string) Config {
	c.WorkDir = dir
	return c.clone()
}

// Protected returns a copy of the protected path patterns.
func (c Config) Protected() []string {
	return append([]string(nil), c.ProtectedPaths...)
}

// clone detaches slice fields so copies never share backing arrays.
func (c Config) clone() Config {
	c.ProtectedPaths = append([]string(nil), c.ProtectedPaths...)
	return c
}

// String renders the configuration without secrets, for logs and /help.
func (c Config) String() string {
	return fmt.Sprintf("provider=%s model=%s workdir=%s shell=%s timeout=%s budget=%d auto_turns=%d auto_commit=%t",
		c.Provider, c.Model, c.WorkDir, c.ShellPolicy, c.ShellTimeout, c.ContextBudget, c.MaxAutoTurns, c.AutoCommit)
}
