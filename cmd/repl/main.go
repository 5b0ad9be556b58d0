// Command repl is the nanocoder terminal front end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
	"github.com/ChamsBouzaiene/nanocoder/internal/providers"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nanocoder: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("nanocoder", flag.ExitOnError)
	dirFlag := fs.String("dir", "", "Working directory (default: current directory)")
	providerFlag := fs.String("provider", "", "Model provider ("+strings.Join(providers.Supported(), ", ")+")")
	modelFlag := fs.String("model", "", "Model name")
	policyFlag := fs.String("shell-policy", "", "Shell policy: auto, confirm or deny")
	turnsFlag := fs.Int("max-turns", 0, "Automatic tool turns per message")
	commitFlag := fs.Bool("auto-commit", false, "Commit after every batch that changes files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	workDir, err := resolveWorkDir(*dirFlag)
	if err != nil {
		return err
	}

	layer := &config.File{Provider: *providerFlag, Model: *modelFlag, ShellPolicy: *policyFlag}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-turns":
			layer.MaxAutoTurns = turnsFlag
		case "auto-commit":
			layer.AutoCommit = commitFlag
		}
	})

	logFile, err := openLog(os.Getenv)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(workDir, layer, os.Getenv)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c := newConsole(os.Stdin, os.Stdout)
	env, err := prepareRuntimeEnv(ctx, cfg, c, renderHook{c: c}, os.Getenv)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return err
	}
	env.logFile = logFile
	defer env.Close()

	fmt.Fprintf(c.out, "nanocoder in %s (model %s, shell %s). Type /help for commands.\n",
		env.Config.WorkDir, env.Config.Model, env.Config.ShellPolicy)
	c.rule()

	r := &repl{env: env, c: c}
	for {
		line, err := c.readLine("you> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			env.Loop.Stop(ctx)
			return nil
		}
		if err != nil {
			return err
		}
		if r.handle(ctx, line) {
			break
		}
		fmt.Fprintln(c.out)
	}

	if err := env.Loop.Err(); err != nil {
		log.Printf("session=%s ended: %v", env.Info.ID, err)
		return err
	}
	return nil
}
