package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
	"github.com/ChamsBouzaiene/nanocoder/internal/engine"
	"github.com/ChamsBouzaiene/nanocoder/internal/indexer"
	"github.com/ChamsBouzaiene/nanocoder/internal/journal"
	"github.com/ChamsBouzaiene/nanocoder/internal/project"
	"github.com/ChamsBouzaiene/nanocoder/internal/prompts"
	"github.com/ChamsBouzaiene/nanocoder/internal/providers"
	"github.com/ChamsBouzaiene/nanocoder/internal/sandbox"
	"github.com/ChamsBouzaiene/nanocoder/internal/session"
	"github.com/ChamsBouzaiene/nanocoder/internal/tools"
)

// runtimeEnv holds everything one session needs. The loop is replaced on
// /clear; the rest lives as long as the process.
type runtimeEnv struct {
	Config  config.Config
	Info    session.Info
	Context *session.ContextSet
	Journal *journal.Journal
	Runner  sandbox.Runner
	Loop    *engine.Loop

	client   engine.ModelClient
	executor *tools.Executor
	system   *prompts.System
	hooks    engine.Hooks
	search   *indexer.SearchIndex
	watcher  *indexer.FileWatcher
	logFile  io.Closer
}

func (r *runtimeEnv) Close() {
	if r.watcher != nil {
		_ = r.watcher.Stop()
	}
	if r.search != nil {
		_ = r.search.Close()
	}
	if r.Journal != nil {
		_ = r.Journal.Close()
	}
	if r.logFile != nil {
		_ = r.logFile.Close()
	}
}

// resolveWorkDir turns the -dir flag into an absolute directory. A missing
// directory is a startup failure.
func resolveWorkDir(dir string) (string, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("working directory is not a valid directory: %s", abs)
	}
	return abs, nil
}

// loadConfig layers defaults, the user file, the project file, the
// environment and finally the command-line flags.
func loadConfig(workDir string, flags *config.File, getenv func(string) string) (config.Config, error) {
	var layers []*config.File
	if mgr, err := config.NewManager(); err != nil {
		log.Printf("WARNING: Failed to initialize config manager: %v", err)
	} else if user, err := mgr.Load(); err != nil {
		return config.Config{}, fmt.Errorf("user config %s: %w", mgr.GetConfigPath(), err)
	} else {
		layers = append(layers, user)
	}

	proj, err := project.LoadConfig(workDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("project config: %w", err)
	}
	layers = append(layers, proj)

	cfg, err := config.Resolve(workDir, getenv, layers...)
	if err != nil {
		return config.Config{}, err
	}
	if cfg, err = flags.Apply(cfg); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openLog sends the standard logger to the cache log file, or to stderr
// when NANOCODER_LOG=stderr.
func openLog(getenv func(string) string) (io.Closer, error) {
	if strings.EqualFold(getenv(config.EnvPrefix+"LOG"), "stderr") {
		log.SetOutput(os.Stderr)
		return nil, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache dir: %w", err)
	}
	path := filepath.Join(dir, "nanocoder", "nanocoder.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}

// prepareRuntimeEnv wires the session components. Optional parts (journal,
// watcher) degrade with a warning; a missing model client does not.
func prepareRuntimeEnv(ctx context.Context, cfg config.Config, confirm tools.Confirmer, render engine.Hook, getenv func(string) string) (*runtimeEnv, error) {
	env := &runtimeEnv{
		Config:  cfg,
		Info:    session.NewInfo(cfg.WorkDir),
		Context: session.NewContextSet(cfg.WorkDir, cfg.MaxReadBytes),
		Runner:  sandbox.NewHostRunner(sandbox.OptionsFrom(cfg)),
	}
	log.Printf("session=%s workdir=%s config: %s", env.Info.ID, cfg.WorkDir, cfg)

	client, model, err := providers.NewClient(cfg, getenv)
	if err != nil {
		return nil, err
	}
	env.client = client
	env.Config.Model = model

	journalPath := cfg.JournalPath
	if journalPath == "" {
		if journalPath, err = journal.DefaultPath(env.Info.RepoHash); err != nil {
			log.Printf("WARNING: %v (undo disabled)", err)
		}
	}
	if journalPath != "" {
		if env.Journal, err = journal.Open(ctx, journalPath); err != nil {
			log.Printf("WARNING: Failed to open undo journal: %v (undo disabled)", err)
			env.Journal = nil
		}
	}

	gitInfo := indexer.DetectGit(ctx, cfg.WorkDir)
	if gitInfo.IsGit {
		log.Printf("Git repository detected at: %s", gitInfo.GitRoot)
	}

	walker := indexer.NewWalker(cfg.WorkDir)
	repoMap := indexer.NewRepoMap(cfg.WorkDir, walker)
	env.search = indexer.NewSearchIndex(cfg.WorkDir, walker)
	if env.watcher, err = indexer.NewFileWatcher(cfg.WorkDir, walker, repoMap, env.search); err != nil {
		log.Printf("WARNING: %v (repository map refreshes only after tool edits)", err)
		env.watcher = nil
	} else if err := env.watcher.Start(); err != nil {
		log.Printf("WARNING: Failed to start file watcher: %v", err)
		_ = env.watcher.Stop()
		env.watcher = nil
	}

	agents, ok := project.LoadAgentsMD(cfg.WorkDir)
	if ok {
		log.Printf("Loaded %s", project.AgentsFile)
	}
	env.system = &prompts.System{
		WorkDir:  cfg.WorkDir,
		Summary:  indexer.NewCachedSummary(cfg.WorkDir),
		RepoMap:  repoMap,
		AgentsMD: agents,
	}

	deps := tools.Deps{
		Runner:     env.Runner,
		Confirmer:  confirm,
		Searcher:   env.search,
		Context:    env.Context,
		Invalidate: []indexer.Invalidator{repoMap, env.search},
	}
	if env.Journal != nil {
		deps.Journal = env.Journal
	}
	if env.executor, err = tools.NewExecutor(cfg, deps); err != nil {
		return nil, err
	}

	env.hooks = engine.Hooks{engine.LoggerHook{L: log.Default()}}
	if render != nil {
		env.hooks = append(env.hooks, render)
	}
	if err := env.newLoop(); err != nil {
		return nil, err
	}
	return env, nil
}

// newLoop starts a fresh conversation with the same collaborators.
func (r *runtimeEnv) newLoop() error {
	loop, err := engine.NewLoop(engine.LoopConfigFrom(r.Config), engine.LoopDeps{
		Client:   r.client,
		Executor: r.executor,
		System:   r.system,
		Context:  r.Context,
		Hooks:    r.hooks,
	})
	if err != nil {
		return err
	}
	r.Loop = loop
	return nil
}
