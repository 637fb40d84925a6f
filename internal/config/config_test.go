// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfigFile writes content as config.cue inside dir.
func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty when no file exists", resolved)
	}

	defaults := DefaultConfig()
	if cfg.Registry.ScanPath != defaults.Registry.ScanPath {
		t.Errorf("Registry.ScanPath = %v, want default %v", cfg.Registry.ScanPath, defaults.Registry.ScanPath)
	}
	if cfg.UI.ColorScheme != defaults.UI.ColorScheme {
		t.Errorf("UI.ColorScheme = %v, want default %v", cfg.UI.ColorScheme, defaults.UI.ColorScheme)
	}
	if cfg.Analysis.MaxDepth != 0 {
		t.Errorf("Analysis.MaxDepth = %d, want 0", cfg.Analysis.MaxDepth)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
includes: [
	{path: "/opt/packs/toolkit.shpack"},
	{path: "/opt/packs/extras.shpack", alias: "xt"},
]
approved_sources: ["toolkit"]
registry: {
	scan_path: false
	alias_file: "/etc/shdeps/aliases.toml"
}
analysis: {
	max_depth: 4
	recursive: true
}
ui: {
	color_scheme: "dark"
	verbose: true
}
`)

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}

	if len(cfg.Includes) != 2 {
		t.Fatalf("Includes = %v, want 2 entries", cfg.Includes)
	}
	if cfg.Includes[1].Alias != "xt" {
		t.Errorf("Includes[1].Alias = %q, want %q", cfg.Includes[1].Alias, "xt")
	}
	if got := cfg.ApprovedSourceNames(); len(got) != 1 || got[0] != "toolkit" {
		t.Errorf("ApprovedSourceNames() = %v, want [toolkit]", got)
	}
	if cfg.Registry.ScanPath {
		t.Error("Registry.ScanPath = true, want false")
	}
	if cfg.Registry.AliasFile != "/etc/shdeps/aliases.toml" {
		t.Errorf("Registry.AliasFile = %q, want the configured path", cfg.Registry.AliasFile)
	}
	if cfg.Analysis.MaxDepth != 4 || !cfg.Analysis.Recursive {
		t.Errorf("Analysis = %+v, want max_depth 4 and recursive true", cfg.Analysis)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark || !cfg.UI.Verbose {
		t.Errorf("UI = %+v, want dark and verbose", cfg.UI)
	}
}

func TestLoadExplicitFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.cue")
	if err := os.WriteFile(path, []byte(`ui: {verbose: true}`), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose = false, want true from explicit file")
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil {
		t.Fatal("loadWithOptions() error = nil, want missing-file error")
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `bogus_field: true`},
		{"bad color scheme", `ui: {color_scheme: "sepia"}`},
		{"negative max depth", `analysis: {max_depth: -1}`},
		{"empty include path", `includes: [{path: ""}]`},
		{"syntax error", `includes: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfigFile(t, dir, tt.content)

			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatalf("loadWithOptions() error = nil, want rejection of %s", tt.name)
			}
		})
	}
}

func TestLoadRejectsDuplicateIncludes(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"duplicate path",
			`includes: [{path: "/p/a.shpack"}, {path: "/p/a.shpack/"}]`,
		},
		{
			"duplicate alias",
			`includes: [{path: "/p/a.shpack", alias: "x"}, {path: "/q/b.shpack", alias: "x"}]`,
		},
		{
			"short name collision without aliases",
			`includes: [{path: "/p/a.shpack"}, {path: "/q/a.shpack"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfigFile(t, dir, tt.content)

			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatalf("loadWithOptions() error = nil, want rejection of %s", tt.name)
			}
		})
	}
}

func TestLoadAllowsShortNameCollisionWithAliases(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `includes: [{path: "/p/a.shpack", alias: "p"}, {path: "/q/a.shpack", alias: "q"}]`)

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if len(cfg.Includes) != 2 {
		t.Errorf("Includes = %v, want both entries", cfg.Includes)
	}
}

func TestLoadRejectsDuplicateApprovedSources(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `approved_sources: ["toolkit", "Toolkit"]`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("loadWithOptions() error = nil, want duplicate rejection")
	}
}

func TestLoadCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("loadWithOptions() error = %v, want context.Canceled", err)
	}
}

func TestConfigDirOverride(t *testing.T) {
	t.Cleanup(Reset)

	dir := t.TempDir()
	SetConfigDirOverride(dir)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want override %q", got, dir)
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	cfg := &Config{
		Includes: []SourceEntry{
			{Path: "/opt/packs/toolkit.shpack"},
			{Path: "/opt/packs/extras.shpack", Alias: "xt"},
		},
		ApprovedSources: []SourceName{"toolkit"},
		Registry: RegistryConfig{
			ScanPath:  false,
			AliasFile: "/etc/shdeps/aliases.toml",
		},
		Analysis: AnalysisConfig{MaxDepth: 3, Recursive: true},
		UI:       UIConfig{ColorScheme: ColorSchemeLight, Verbose: true},
	}

	dir := t.TempDir()
	writeConfigFile(t, dir, GenerateCUE(cfg))

	loaded, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() of generated CUE error = %v", err)
	}
	if loaded.Registry.AliasFile != cfg.Registry.AliasFile {
		t.Errorf("Registry.AliasFile = %q, want %q", loaded.Registry.AliasFile, cfg.Registry.AliasFile)
	}
	if loaded.Analysis != cfg.Analysis {
		t.Errorf("Analysis = %+v, want %+v", loaded.Analysis, cfg.Analysis)
	}
	if loaded.UI != cfg.UI {
		t.Errorf("UI = %+v, want %+v", loaded.UI, cfg.UI)
	}
	if len(loaded.Includes) != 2 || loaded.Includes[1].Alias != "xt" {
		t.Errorf("Includes = %+v, want the generated entries", loaded.Includes)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(filepath.Join(t.TempDir(), AppName))

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}

	cfgDir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	path := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("generated config not readable: %v", err)
	}
	if !strings.Contains(string(data), "registry:") {
		t.Errorf("generated config missing registry section:\n%s", data)
	}

	// A second call must not overwrite the existing file.
	marker := append(data, []byte("\n// edited\n")...)
	if err := os.WriteFile(path, marker, 0o644); err != nil {
		t.Fatalf("failed to edit config: %v", err)
	}
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() second call error = %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not readable after second call: %v", err)
	}
	if !strings.Contains(string(after), "// edited") {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}
}

func TestSaveWritesLoadableFile(t *testing.T) {
	t.Cleanup(Reset)
	dir := t.TempDir()
	SetConfigDirOverride(dir)

	cfg := DefaultConfig()
	cfg.UI.Verbose = true
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() of saved config error = %v", err)
	}
	if !loaded.UI.Verbose {
		t.Error("UI.Verbose = false after Save/load, want true")
	}
}
