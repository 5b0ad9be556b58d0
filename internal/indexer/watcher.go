package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Invalidator is a cache that a file change makes stale.
type Invalidator interface {
	Invalidate()
}

// FileWatcher watches the workspace and invalidates caches after changes.
// Events are debounced; callbacks run on the watcher goroutine.
type FileWatcher struct {
	root         string
	walker       *Walker
	watcher      *fsnotify.Watcher
	targets      []Invalidator
	onChange     func([]string)
	debounceTime time.Duration

	mu            sync.Mutex
	pendingEvents map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileWatcher creates a watcher for root that invalidates targets.
func NewFileWatcher(root string, walker *Walker, targets ...Invalidator) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if walker == nil {
		walker = NewWalker(root)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		root:          root,
		walker:        walker,
		watcher:       watcher,
		targets:       targets,
		debounceTime:  300 * time.Millisecond,
		pendingEvents: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// OnChange sets a callback receiving the changed paths (relative to root).
func (fw *FileWatcher) OnChange(callback func([]string)) {
	fw.onChange = callback
}

// Start adds every non-ignored directory to the watcher and begins
// processing events.
func (fw *FileWatcher) Start() error {
	err := filepath.WalkDir(fw.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != fw.root {
			rel, err := filepath.Rel(fw.root, path)
			if err != nil || fw.walker.Ignored(rel) {
				return filepath.SkipDir
			}
		}
		if err := fw.watcher.Add(path); err != nil {
			log.Printf("WARNING: failed to watch %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk workspace: %w", err)
	}

	fw.wg.Add(2)
	go fw.eventLoop()
	go fw.debounceLoop()
	return nil
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.cancel()
	fw.wg.Wait()
	return fw.watcher.Close()
}

func (fw *FileWatcher) eventLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: watcher error: %v", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(fw.root, event.Name)
	if err != nil || fw.walker.Ignored(rel) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.watcher.Add(event.Name); err != nil {
				log.Printf("WARNING: failed to watch new directory %s: %v", event.Name, err)
			}
		}
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		fw.mu.Lock()
		fw.pendingEvents[filepath.ToSlash(rel)] = true
		fw.mu.Unlock()
	}
}

func (fw *FileWatcher) debounceLoop() {
	defer fw.wg.Done()

	ticker := time.NewTicker(fw.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return
		case <-ticker.C:
			fw.flush()
		}
	}
}

func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	if len(fw.pendingEvents) == 0 {
		fw.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(fw.pendingEvents))
	for path := range fw.pendingEvents {
		paths = append(paths, path)
	}
	fw.pendingEvents = make(map[string]bool)
	fw.mu.Unlock()

	log.Printf("watcher changed=%d", len(paths))
	for _, t := range fw.targets {
		t.Invalidate()
	}
	if fw.onChange != nil {
		fw.onChange(paths)
	}
}
