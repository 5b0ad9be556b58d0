package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NANOCODER_"

// ApplyEnv overlays NANOCODER_* variables onto c. Invalid values are logged
// and ignored, keeping the lower layer.
func ApplyEnv(c Config, getenv func(string) string) Config {
	c = c.clone()
	get := func(key string) string {
		return strings.TrimSpace(getenv(EnvPrefix + key))
	}

	setString(&c.Provider, get("PROVIDER"))
	setString(&c.Model, get("MODEL"))
	setString(&c.BaseURL, get("BASE_URL"))
	setString(&c.JournalPath, get("JOURNAL"))
	setString(&c.CommitMessage, get("COMMIT_MESSAGE"))

	if v := get("SHELL_POLICY"); v != "" {
		if p, err := ParseShellPolicy(v); err == nil {
			c.ShellPolicy = p
		} else {
			log.Printf("WARNING: %v, keeping %s", err, c.ShellPolicy)
		}
	}
	if v := get("SHELL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.ShellTimeout = d
		} else {
			log.Printf("WARNING: Invalid %sSHELL_TIMEOUT value '%s', keeping %s", EnvPrefix, v, c.ShellTimeout)
		}
	}
	if v := get("MAX_OUTPUT"); v != "" {
		if n, err := units.RAMInBytes(v); err == nil && n > 0 {
			c.MaxOutputBytes = n
		} else {
			log.Printf("WARNING: Invalid %sMAX_OUTPUT value '%s', keeping %s", EnvPrefix, v, units.BytesSize(float64(c.MaxOutputBytes)))
		}
	}
	envInt(get("CONTEXT_BUDGET"), "CONTEXT_BUDGET", &c.ContextBudget)
	envInt(get("MAX_AUTO_TURNS"), "MAX_AUTO_TURNS", &c.MaxAutoTurns)
	envInt(get("MAX_RETRIES"), "MAX_RETRIES", &c.Retry.MaxRetries)
	envBool(get("AUTO_COMMIT"), "AUTO_COMMIT", &c.AutoCommit)
	envBool(get("VALIDATE_SYNTAX"), "VALIDATE_SYNTAX", &c.ValidateSyntax)
	return c
}

func envInt(v, key string, dst *int) {
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("WARNING: Invalid %s%s value '%s', keeping %d", EnvPrefix, key, v, *dst)
		return
	}
	*dst = n
}

func envBool(v, key string, dst *bool) {
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: Invalid %s%s value '%s', keeping %t", EnvPrefix, key, v, *dst)
		return
	}
	*dst = b
}

// Resolve builds the session configuration for workDir from the defaults,
// the given file layers (lowest first), and the environment.
func Resolve(workDir string, getenv func(string) string, layers ...*File) (Config, error) {
	c := Default().WithWorkDir(workDir)
	for _, layer := range layers {
		var err error
		if c, err = layer.Apply(c); err != nil {
			return Config{}, err
		}
	}
	c = ApplyEnv(c, getenv)
	if c.ShellTimeout < MinShellTimeout {
		c.ShellTimeout = MinShellTimeout
	}
	if c.ShellTimeout > MaxShellTimeout {
		c.ShellTimeout = MaxShellTimeout
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
