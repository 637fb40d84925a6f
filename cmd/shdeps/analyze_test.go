// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shdeps-cli/internal/resolve"
)

// writePack creates a minimal source pack under dir and returns its path.
func writePack(t *testing.T, dir, name, library string) string {
	t.Helper()

	packDir := filepath.Join(dir, name+".shpack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		t.Fatalf("mkdir pack: %v", err)
	}
	manifest := fmt.Sprintf("name: %q\n", name)
	if err := os.WriteFile(filepath.Join(packDir, "sourcepack.cue"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(packDir, "lib.sh"), []byte(library), 0o644); err != nil {
		t.Fatalf("write library: %v", err)
	}
	return packDir
}

// decodeResult parses the --json output of the analyze command.
func decodeResult(t *testing.T, out string) *resolve.Result {
	t.Helper()

	var result resolve.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to decode analyze output %q: %v", out, err)
	}
	return &result
}

func TestAnalyzeInlineMissingCommand(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	t.Chdir(t.TempDir())

	err := runCLI(t, app, nil, "analyze", "-c", "frobnicate --now", "--no-path-scan", "--json")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}

	result := decodeResult(t, stdout.String())
	if len(result.NonCore) != 1 {
		t.Fatalf("NonCore = %+v, want exactly one entry", result.NonCore)
	}
	if result.NonCore[0].Name != "frobnicate" {
		t.Errorf("NonCore[0].Name = %q, want %q", result.NonCore[0].Name, "frobnicate")
	}
	if result.NonCore[0].Err == "" {
		t.Error("NonCore[0].Err is empty, want a lookup failure recorded")
	}
}

func TestAnalyzeStdinWithApprovedPack(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	dir := t.TempDir()
	writePack(t, dir, "toolkit", "deploy_widget() {\n  echo widget\n}\n")
	t.Chdir(dir)

	stdin := strings.NewReader("deploy_widget --fast\n")
	err := runCLI(t, app, stdin, "analyze", "-", "--source", "toolkit", "--no-path-scan", "--json")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}

	result := decodeResult(t, stdout.String())
	if len(result.TopLevelInlineable) != 1 {
		t.Fatalf("TopLevelInlineable = %v, want one definition", result.TopLevelInlineable)
	}
	if !strings.HasPrefix(result.TopLevelInlineable[0], "function deploy_widget {") {
		t.Errorf("TopLevelInlineable[0] = %q, want a rendered deploy_widget definition", result.TopLevelInlineable[0])
	}
}

func TestAnalyzeScriptFileSummaryAllClear(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	dir := t.TempDir()
	t.Chdir(dir)

	scriptPath := filepath.Join(dir, "deploy.sh")
	if err := os.WriteFile(scriptPath, []byte("echo starting\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	err := runCLI(t, app, nil, "analyze", scriptPath, "--no-path-scan", "--summary")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}

	// echo is a builtin: it is suppressed from the summary view entirely.
	if !strings.Contains(stdout.String(), "No missing commands") {
		t.Errorf("output %q does not report the all-clear", stdout.String())
	}
}

func TestAnalyzeDefaultOutputIsInlineableText(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	dir := t.TempDir()
	writePack(t, dir, "toolkit", "deploy_widget() {\n  echo widget\n}\n")
	t.Chdir(dir)

	err := runCLI(t, app, nil, "analyze", "-c", "deploy_widget", "--source", "toolkit", "--no-path-scan")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}

	if !strings.HasPrefix(stdout.String(), "function deploy_widget {") {
		t.Errorf("default output %q is not the bare inlineable text", stdout.String())
	}
}

func TestAnalyzeDefaultOutputEmptyWhenNothingInlineable(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	t.Chdir(t.TempDir())

	err := runCLI(t, app, nil, "analyze", "-c", "echo hi", "--no-path-scan")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}
	if stdout.String() != "" {
		t.Errorf("default output %q, want empty when nothing is inlineable", stdout.String())
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	app, _, _ := newTestApp(t)
	t.Chdir(t.TempDir())

	err := runCLI(t, app, nil, "analyze", "does-not-exist.sh")
	if err == nil {
		t.Fatal("analyze of a missing file succeeded, want error")
	}
}

func TestAnalyzeParseError(t *testing.T) {
	app, _, _ := newTestApp(t)
	t.Chdir(t.TempDir())

	err := runCLI(t, app, nil, "analyze", "-c", "if true; then")
	if err == nil {
		t.Fatal("analyze of an unparseable snippet succeeded, want error")
	}
}

func TestAnalyzeInputValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "no input at all",
			args: []string{"analyze"},
		},
		{
			name: "inline snippet and file are mutually exclusive",
			args: []string{"analyze", "-c", "echo hi", "script.sh"},
		},
		{
			name: "watch requires a file",
			args: []string{"analyze", "--watch", "-"},
		},
		{
			name: "summary and json are mutually exclusive",
			args: []string{"analyze", "-c", "echo hi", "--summary", "--json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp(t)
			t.Chdir(t.TempDir())

			if err := runCLI(t, app, strings.NewReader(""), tt.args...); err == nil {
				t.Errorf("runCLI(%v) succeeded, want error", tt.args)
			}
		})
	}
}

func TestAnalyzeSummaryShowsBodySize(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	dir := t.TempDir()
	t.Chdir(dir)
	writePack(t, dir, "toolkit", "deploy_widget() {\n\techo one\n\techo two\n}\n")

	err := runCLI(t, app, nil, "analyze", "-c", "deploy_widget", "--no-path-scan", "--summary", "--source", "toolkit")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "function · toolkit") {
		t.Errorf("output %q does not classify the pack function", out)
	}
	if !strings.Contains(out, "-line body") {
		t.Errorf("output %q does not show the body line count", out)
	}
}

func TestAnalyzeSummaryListsMissing(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	t.Chdir(t.TempDir())

	err := runCLI(t, app, nil, "analyze", "-c", "frobnicate", "--no-path-scan", "--summary")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Commands (1)") {
		t.Errorf("output %q does not contain the summary header", out)
	}
	if !strings.Contains(out, "frobnicate") {
		t.Errorf("output %q does not name the missing command", out)
	}
	if !strings.Contains(out, "missing") {
		t.Errorf("output %q does not flag the command as missing", out)
	}
}

func TestAnalyzeUnknownApprovedSourceWarns(t *testing.T) {
	app, _, stderr := newTestApp(t)
	t.Chdir(t.TempDir())

	err := runCLI(t, app, nil, "analyze", "-c", "echo hi", "--source", "ghost", "--no-path-scan")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}
	if !strings.Contains(stderr.String(), "ghost") {
		t.Errorf("stderr %q does not warn about the unknown source", stderr.String())
	}
}
