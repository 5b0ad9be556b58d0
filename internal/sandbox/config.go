package sandbox

import (
	"os"
	"runtime"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
)

const (
	defaultCmdTimeout = 60 * time.Second
	defaultMaxOutput  = 64 << 10
)

// Options configures a HostRunner.
type Options struct {
	Shell          string        // interpreter; "sh" (or "cmd" on Windows) when empty
	DefaultTimeout time.Duration // used when RunShell gets timeout <= 0
	MaxOutput      int64         // byte cap on combined output
	Env            []string      // extra KEY=VALUE entries appended to os.Environ()
}

// OptionsFrom derives runner options from the session configuration.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		DefaultTimeout: cfg.ShellTimeout,
		MaxOutput:      cfg.MaxOutputBytes,
		// Keep pagers and editors from blocking non-interactive runs.
		Env: []string{"PAGER=cat", "GIT_PAGER=cat", "GIT_EDITOR=true"},
	}
}

func (o Options) withDefaults() Options {
	if o.Shell == "" {
		o.Shell = defaultShell()
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = defaultCmdTimeout
	}
	if o.MaxOutput <= 0 {
		o.MaxOutput = defaultMaxOutput
	}
	return o
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

func (o Options) environ() []string {
	return append(os.Environ(), o.Env...)
}
