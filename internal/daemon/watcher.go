// Package daemon implements watch mode: a debounced file watcher over the
// workspace sources that triggers rebuilds on change.
package daemon

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"velo/internal/logging"
)

// Change is one debounced source change.
type Change struct {
	Path      string
	Op        string
	Timestamp time.Time
}

// WatcherConfig controls what the watcher reacts to.
type WatcherConfig struct {
	// WorkspaceRoot is the directory watched recursively.
	WorkspaceRoot string

	// Patterns match files that trigger a rebuild.
	Patterns []string

	// IgnoreDirs are directory names never descended into. Cache buckets
	// must be ignored or every build would retrigger itself.
	IgnoreDirs []string

	// Debounce collapses rapid event bursts (editor saves, git checkouts)
	// into a single change.
	Debounce time.Duration
}

// DefaultWatcherConfig watches the files that affect a cargo build.
func DefaultWatcherConfig(workspaceRoot string) *WatcherConfig {
	return &WatcherConfig{
		WorkspaceRoot: workspaceRoot,
		Patterns:      []string{"*.rs", "Cargo.toml", "Cargo.lock", "velo.json", "rust-toolchain.toml", "rust-toolchain"},
		IgnoreDirs: []string{
			".git",
			"target",
			"target-fast",
			"node_modules",
			".idea",
			".vscode",
		},
		Debounce: 250 * time.Millisecond,
	}
}

// Watcher emits debounced Changes for workspace source edits.
type Watcher struct {
	config  *WatcherConfig
	watcher *fsnotify.Watcher
	changes chan Change
	errors  chan error
	done    chan struct{}

	mu      sync.Mutex
	running bool
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher; Start must be called before changes flow.
func NewWatcher(config *WatcherConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		config:  config,
		watcher: fsWatcher,
		changes: make(chan Change, 64),
		errors:  make(chan error, 8),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Start registers the workspace tree and begins emitting changes.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.config.WorkspaceRoot); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down. Safe to call twice.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)
	return w.watcher.Close()
}

// Changes returns the channel of debounced source changes.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignoredDir(d.Name()) && path != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	log := logging.GetLogger("watch")
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// New directories need registering so edits inside them are
			// seen too.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.ignoredPath(event.Name) {
						if err := w.addTree(event.Name); err != nil {
							log.Debug().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
						}
					}
					continue
				}
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignoredPath(event.Name) || !w.matches(event.Name) {
		return
	}

	var op string
	switch {
	case event.Op.Has(fsnotify.Create):
		op = "created"
	case event.Op.Has(fsnotify.Write):
		op = "modified"
	case event.Op.Has(fsnotify.Remove):
		op = "deleted"
	case event.Op.Has(fsnotify.Rename):
		op = "renamed"
	default:
		return
	}

	w.debounce(Change{Path: event.Name, Op: op, Timestamp: time.Now()})
}

func (w *Watcher) debounce(change Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[change.Path]; ok {
		timer.Stop()
	}
	w.pending[change.Path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, change.Path)
		w.mu.Unlock()

		select {
		case w.changes <- change:
		default:
			// Channel full; the pending rebuild covers this change anyway.
		}
	})
}

func (w *Watcher) matches(path string) bool {
	if len(w.config.Patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range w.config.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) ignoredDir(name string) bool {
	for _, ignore := range w.config.IgnoreDirs {
		if name == ignore {
			return true
		}
	}
	return false
}

func (w *Watcher) ignoredPath(path string) bool {
	rel, err := filepath.Rel(w.config.WorkspaceRoot, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.ignoredDir(part) {
			return true
		}
	}
	return false
}
