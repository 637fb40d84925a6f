// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs shell-script analysis when watched sources change.
//
// A Watcher monitors one or more root directories — typically the analyzed
// script's directory plus the locations source packs are loaded from — and
// invokes a callback after a debounce window so that an editor save burst
// (write, rename, chmod) produces a single re-analysis.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last filesystem event before
// the callback fires.
const defaultDebounce = 500 * time.Millisecond

// defaultPatterns select the files whose changes invalidate an analysis
// result when the caller supplies no patterns: shell sources and source-pack
// manifests.
var defaultPatterns = []string{
	"**/*.sh",
	"**/*.bash",
	"**/sourcepack.cue",
}

// defaultIgnores are always excluded. Shell projects accumulate the same
// noise as any other checkout: VCS metadata, vendored trees, editor swap and
// autosave files, OS cruft.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.cache/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.#*",
	"**/#*#",
	"**/.DS_Store",
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Roots are the directories to monitor. The first entry is required and
	// anchors relative change paths; later entries (pack search locations)
	// are optional and skipped silently when they do not exist.
	Roots []string

	// Patterns are doublestar globs, matched against paths relative to the
	// root that produced the event. Empty means defaultPatterns.
	Patterns []string

	// Ignore are additional globs for paths that must never trigger the
	// callback, merged with the built-in defaults.
	Ignore []string

	// Debounce overrides the quiet period. Zero or negative means
	// defaultDebounce.
	Debounce time.Duration

	// ClearScreen clears the terminal (ANSI escape to Stdout) before each
	// callback. No terminal detection is done.
	ClearScreen bool

	// OnChange receives the deduplicated changed paths, relative to their
	// root. nil is a no-op.
	OnChange func(ctx context.Context, changed []string) error

	// Stdout and Stderr default to os.Stdout / os.Stderr when nil.
	Stdout io.Writer
	Stderr io.Writer
}

// Watcher monitors the configured roots and fires a debounced callback when
// matching files change. Run must be called exactly once.
type Watcher struct {
	roots       []string
	patterns    []string
	ignores     []string
	debounce    time.Duration
	clearScreen bool
	onChange    func(ctx context.Context, changed []string) error
	stdout      io.Writer
	stderr      io.Writer
	fsw         *fsnotify.Watcher
	started     atomic.Bool
}

// New builds a Watcher from cfg: roots are made absolute and deduplicated,
// globs are validated eagerly, and every non-ignored directory under each
// root is registered with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, fmt.Errorf("watch: at least one root directory is required")
	}

	roots, err := normalizeRoots(cfg.Roots)
	if err != nil {
		return nil, err
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	if err := checkGlobs(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := checkGlobs(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		roots:       roots,
		patterns:    patterns,
		ignores:     append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce:    debounce,
		clearScreen: cfg.ClearScreen,
		onChange:    cfg.OnChange,
		stdout:      stdout,
		stderr:      stderr,
		fsw:         fsw,
	}

	for _, root := range roots {
		if err := w.registerTree(root); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				fmt.Fprintf(stderr, "watch: close after init failure: %v\n", closeErr)
			}
			return nil, err
		}
	}

	return w, nil
}

// normalizeRoots resolves every root to an absolute path and drops
// duplicates and roots nested inside an earlier root (the outer watch
// already covers them). The first root must exist; later roots that do not
// are dropped, since pack search locations are frequently absent.
func normalizeRoots(roots []string) ([]string, error) {
	var out []string
	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root %q: %w", root, err)
		}
		if info, statErr := os.Stat(abs); statErr != nil || !info.IsDir() {
			if i == 0 {
				return nil, fmt.Errorf("watch: root %q is not a watchable directory", root)
			}
			continue
		}
		covered := false
		for _, prev := range out {
			if abs == prev || strings.HasPrefix(abs, prev+string(filepath.Separator)) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, abs)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("watch: no watchable root directories")
	}
	return out, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on clean cancellation and an error for fatal watcher failures
// or a repeated call.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		busy    atomic.Bool
	)

	// fire drains the pending set and runs the callback. It can be scheduled
	// by time.AfterFunc after cancellation, so ctx is re-checked; the
	// callback receives ctx for its own cancellation handling. When a
	// previous run is still in flight the fire is deferred by re-arming the
	// timer, so the accumulated changes are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			fmt.Fprintf(w.stderr, "watch: previous analysis still running, deferring\n")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := make([]string, 0, len(pending))
		for rel := range pending {
			changed = append(changed, rel)
		}
		clear(pending)
		mu.Unlock()
		slices.Sort(changed)

		if w.clearScreen {
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}
		if w.onChange != nil {
			if err := w.onChange(ctx, changed); err != nil {
				fmt.Fprintf(w.stderr, "watch: callback error: %v\n", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		armed := timer
		mu.Unlock()
		if armed != nil && !armed.Stop() {
			select {
			case <-armed.C:
			default:
			}
		}
		if err := w.fsw.Close(); err != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}

			rel := w.relToRoot(evt.Name)
			if w.ignored(rel) || !w.wanted(rel) {
				if evt.Has(fsnotify.Create) {
					w.trackNewDir(evt.Name)
				}
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.trackNewDir(evt.Name)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// Resource exhaustion means the watcher cannot recover; see the
			// platform-specific classification in watcher_fatal_*.go.
			if fatalWatchError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}

// relToRoot rewrites an absolute event path as relative to the root that
// contains it. Paths outside every root are returned unchanged.
func (w *Watcher) relToRoot(path string) string {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			if rel, err := filepath.Rel(root, path); err == nil {
				return rel
			}
		}
	}
	return path
}

// registerTree walks root and adds every non-ignored directory to the
// fsnotify watcher. Directories are registered regardless of the watch
// patterns; pattern filtering happens per event, so a pattern like
// "**/sourcepack.cue" still sees files created in fresh subdirectories.
func (w *Watcher) registerTree(root string) error {
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, entryErr error) error {
		if entryErr != nil {
			// Unreadable subtrees are skipped, not fatal: a permission-locked
			// directory inside a pack search path should not kill watch mode.
			fmt.Fprintf(w.stderr, "watch: skipping inaccessible path %q: %v\n", path, entryErr)
			return nil //nolint:nilerr // intentional skip
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if w.ignored(rel) || w.ignored(rel+"/") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %q: %w", root, walkErr)
	}
	return nil
}

// trackNewDir extends the watch to a directory created after startup, e.g. a
// pack scaffolded while watch mode is running.
func (w *Watcher) trackNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel := w.relToRoot(path)
	if w.ignored(rel) || w.ignored(rel+"/") {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		fmt.Fprintf(w.stderr, "watch: add new directory %q: %v\n", path, addErr)
	}
}

// ignored reports whether the root-relative path matches an ignore glob.
func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// wanted reports whether the root-relative path matches a watch glob.
func (w *Watcher) wanted(rel string) bool {
	return matchAny(w.patterns, rel)
}

func matchAny(globs []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, glob := range globs {
		if ok, err := doublestar.Match(glob, normalized); err == nil && ok {
			return true
		}
	}
	return false
}

// checkGlobs validates every pattern up front so a bad glob fails at
// construction time instead of silently never matching.
func checkGlobs(globs []string, label string) error {
	for _, glob := range globs {
		if _, err := doublestar.Match(glob, ""); err != nil {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, glob, err)
		}
	}
	return nil
}

// DefaultPatterns returns a copy of the built-in watch patterns.
func DefaultPatterns() []string {
	return slices.Clone(defaultPatterns)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
