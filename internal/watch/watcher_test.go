// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// startWatcher runs w in a goroutine and returns the channel carrying the
// Run result.
func startWatcher(t *testing.T, w *Watcher, ctx context.Context) chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	// Give the event loop time to start before the test mutates the tree.
	time.Sleep(50 * time.Millisecond)
	return errCh
}

func writeShellFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TestWatcherDebounceCoalescesLibraryEdits verifies that a burst of shell
// library writes produces a single callback carrying all changed paths.
func TestWatcherDebounceCoalescesLibraryEdits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{})

	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 100 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			close(done)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := startWatcher(t, w, ctx)

	for _, name := range []string{"deploy.sh", "lib.sh", "rollback.sh"} {
		writeShellFile(t, filepath.Join(dir, name), "echo "+name)
		// Spread the writes so they arrive as separate fsnotify events while
		// staying inside the debounce window.
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, want := range []string{"deploy.sh", "lib.sh", "rollback.sh"} {
		if !slices.Contains(collected, want) {
			t.Errorf("expected %q in changed files, got %v", want, collected)
		}
	}
}

// TestWatcherDefaultPatterns verifies that with no configured patterns only
// shell sources and pack manifests trigger the callback.
func TestWatcherDefaultPatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)

	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := startWatcher(t, w, ctx)

	// Neither a log file nor a README matches the defaults.
	writeShellFile(t, filepath.Join(dir, "run.log"), "noise")
	writeShellFile(t, filepath.Join(dir, "README.md"), "docs")
	time.Sleep(200 * time.Millisecond)

	writeShellFile(t, filepath.Join(dir, "sourcepack.cue"), `name: "toolkit"`)

	select {
	case changed := <-fired:
		if slices.Contains(changed, "run.log") || slices.Contains(changed, "README.md") {
			t.Errorf("non-shell files appeared in changed set: %v", changed)
		}
		if !slices.Contains(changed, "sourcepack.cue") {
			t.Errorf("expected sourcepack.cue in changed set, got %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback on manifest write")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

// TestWatcherSecondRootCoversPackDir verifies that edits under a second
// root (a pack search location) trigger re-analysis just like edits beside
// the script.
func TestWatcherSecondRootCoversPackDir(t *testing.T) {
	t.Parallel()

	scriptDir := t.TempDir()
	packRoot := t.TempDir()
	packDir := filepath.Join(packRoot, "toolkit.shpack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		t.Fatalf("mkdir pack: %v", err)
	}

	fired := make(chan []string, 10)
	w, err := New(Config{
		Roots:    []string{scriptDir, packRoot},
		Debounce: 50 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := startWatcher(t, w, ctx)

	writeShellFile(t, filepath.Join(packDir, "lib.sh"), "deploy_widget() { echo hi; }")

	select {
	case changed := <-fired:
		want := filepath.Join("toolkit.shpack", "lib.sh")
		if !slices.Contains(changed, want) {
			t.Errorf("expected %q in changed set, got %v", want, changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback on pack library edit")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

// TestWatcherMissingSecondaryRootSkipped verifies that an absent pack search
// location is dropped while the primary root must exist.
func TestWatcherMissingSecondaryRootSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	w, err := New(Config{
		Roots:  []string{dir, filepath.Join(dir, "no-such-sources")},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("New() error with absent secondary root: %v", err)
	}
	if got := len(w.roots); got != 1 {
		t.Errorf("expected 1 effective root, got %d: %v", got, w.roots)
	}

	if _, err := New(Config{
		Roots:  []string{filepath.Join(dir, "no-such-dir")},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	}); err == nil {
		t.Error("New() should fail when the primary root does not exist")
	}
}

// TestWatcherNestedRootDeduplicated verifies that a root inside an earlier
// root is dropped rather than double-watched.
func TestWatcherNestedRootDeduplicated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "packs")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	w, err := New(Config{
		Roots:  []string{dir, nested, dir},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got := len(w.roots); got != 1 {
		t.Errorf("expected nested and duplicate roots collapsed to 1, got %d: %v", got, w.roots)
	}
}

// TestWatcherIgnoreGlobs confirms that user-supplied ignore globs override
// an otherwise matching watch pattern.
func TestWatcherIgnoreGlobs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)

	w, err := New(Config{
		Roots:    []string{dir},
		Ignore:   []string{"**/generated_*.sh"},
		Debounce: 50 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := startWatcher(t, w, ctx)

	writeShellFile(t, filepath.Join(dir, "generated_env.sh"), "export FOO=1")
	time.Sleep(200 * time.Millisecond)
	writeShellFile(t, filepath.Join(dir, "deploy.sh"), "echo hi")

	select {
	case changed := <-fired:
		if slices.Contains(changed, "generated_env.sh") {
			t.Error("ignored file generated_env.sh appeared in changed set")
		}
		if !slices.Contains(changed, "deploy.sh") {
			t.Errorf("expected deploy.sh in changed set, got %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback on non-ignored file")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

// TestWatcherBuiltinIgnores pins the noise paths that never trigger a
// re-analysis regardless of configuration.
func TestWatcherBuiltinIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		ignored bool
	}{
		{".git/hooks/pre-commit.sh", true},
		{".git/objects/ab/cd1234", true},
		{"node_modules/pkg/postinstall.sh", true},
		{".cache/shdeps/last.json", true},
		{"deploy.sh.swp", true},
		{"deploy.sh.swo", true},
		{"deploy.sh~", true},
		{".#deploy.sh", true},
		{"#deploy.sh#", true},
		{"toolkit.shpack/.DS_Store", true},
		// These must stay watchable.
		{"deploy.sh", false},
		{"toolkit.shpack/lib.sh", false},
		{"toolkit.shpack/sourcepack.cue", false},
		{".githooks/install.sh", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchAny(DefaultIgnores(), tt.path); got != tt.ignored {
				t.Errorf("default-ignored(%q) = %v, want %v", tt.path, got, tt.ignored)
			}
		})
	}
}

// TestWatcherBusyGuard verifies that a timer fire during a long-running
// analysis is deferred instead of running concurrently.
func TestWatcherBusyGuard(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu    sync.Mutex
		calls int
	)
	firstDone := make(chan struct{})
	stderrBuf := &bytes.Buffer{}

	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		Stderr:   stderrBuf,
		OnChange: func(_ context.Context, _ []string) error {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				time.Sleep(300 * time.Millisecond)
				close(firstDone)
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := startWatcher(t, w, ctx)

	writeShellFile(t, filepath.Join(dir, "deploy.sh"), "echo one")
	time.Sleep(100 * time.Millisecond)
	// Second edit lands while the first analysis is still sleeping.
	writeShellFile(t, filepath.Join(dir, "lib.sh"), "echo two")

	select {
	case <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first callback")
	}
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// The deferred fire may legitimately run after the first analysis
	// finishes; what must never happen is more than one extra invocation.
	if calls > 2 {
		t.Errorf("expected at most 2 callback invocations, got %d", calls)
	}
	if calls == 1 && !strings.Contains(stderrBuf.String(), "deferring") {
		t.Logf("stderr: %s", stderrBuf.String())
		t.Log("expected defer notice in stderr, but the first analysis may have finished in time")
	}
}

// TestWatcherClearScreen verifies the ANSI clear sequence precedes the
// callback when ClearScreen is set.
func TestWatcherClearScreen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	done := make(chan struct{})
	stdoutBuf := &bytes.Buffer{}

	w, err := New(Config{
		Roots:       []string{dir},
		Debounce:    50 * time.Millisecond,
		ClearScreen: true,
		Stdout:      stdoutBuf,
		Stderr:      &bytes.Buffer{},
		OnChange: func(_ context.Context, _ []string) error {
			close(done)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := startWatcher(t, w, ctx)

	writeShellFile(t, filepath.Join(dir, "deploy.sh"), "echo hi")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !strings.Contains(stdoutBuf.String(), "\033[2J\033[H") {
		t.Errorf("expected ANSI clear sequence in stdout, got %q", stdoutBuf.String())
	}
}

// TestWatcherConstructionErrors pins the fail-fast paths of New.
func TestWatcherConstructionErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no roots",
			cfg:     Config{},
			wantErr: "at least one root",
		},
		{
			name:    "invalid watch glob",
			cfg:     Config{Roots: []string{dir}, Patterns: []string{"[broken"}},
			wantErr: "invalid watch pattern",
		},
		{
			name:    "invalid ignore glob",
			cfg:     Config{Roots: []string{dir}, Ignore: []string{"[broken"}},
			wantErr: "invalid ignore pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.cfg.Stdout = &bytes.Buffer{}
			tt.cfg.Stderr = &bytes.Buffer{}
			_, err := New(tt.cfg)
			if err == nil {
				t.Fatal("New() should return an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

// TestWatcherSingleRun verifies that a second Run call fails immediately.
func TestWatcherSingleRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := startWatcher(t, w, ctx)

	if err := w.Run(ctx); err == nil {
		t.Fatal("second Run() call should return an error")
	} else if !strings.Contains(err.Error(), "Run called more than once") {
		t.Errorf("error message should mention double-run, got: %v", err)
	}

	cancel()
	if firstErr := <-errCh; firstErr != nil {
		t.Fatalf("first Run() returned error: %v", firstErr)
	}
}

// TestWatcherContextCancel verifies that Run returns cleanly on context
// cancellation.
func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := startWatcher(t, w, ctx)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() returned error on cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
